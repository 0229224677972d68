package cmd

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/smazurov/videosqueeze/internal/blob"
	"github.com/smazurov/videosqueeze/internal/conversion"
	"github.com/smazurov/videosqueeze/internal/engine"
	"github.com/smazurov/videosqueeze/internal/logging"
	"github.com/smazurov/videosqueeze/internal/process"
	"github.com/smazurov/videosqueeze/internal/settings"
)

// CreateCompressCmd creates the compress command.
func CreateCompressCmd(rt *Runtime) *cobra.Command {
	var flags settingsFlags
	var output string
	var force bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "compress <input>",
		Short: "Compress one video file",
		Long: `Runs a single conversion through the same driver the server uses and writes the result next to the input ` +
			`(or to --output). Progress goes to stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			logging.Initialize(logging.Config{Level: level, Format: "text"})

			input := args[0]
			cfg, err := flags.resolve(cmd.Flags(), loadPresets(cmd, rt.PresetsFile))
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if output == "" {
				output = defaultOutputPath(input, cfg.Format)
			}
			if sameFile(input, output) {
				return fmt.Errorf("output %s would overwrite the input", output)
			}
			if !force {
				if _, err := os.Stat(output); err == nil {
					return fmt.Errorf("%s exists, use --force to overwrite", output)
				}
			}

			data, err := os.ReadFile(input)
			if err != nil {
				return err
			}

			eng := engine.NewFFmpeg(rt.Engine)
			defer func() { _ = eng.Close() }()
			driver := conversion.NewDriver(eng, blob.NewStore(""), nil)

			ctx := cmd.Context()
			if err := driver.EnsureLoaded(ctx); err != nil {
				return fmt.Errorf("load engine: %w", err)
			}

			sess, err := driver.Open(conversion.FileInput{
				Name:        filepath.Base(input),
				ContentType: mime.TypeByExtension(filepath.Ext(input)),
				Data:        data,
			})
			if err != nil {
				return err
			}
			defer driver.Reset(sess)
			if err := sess.SetSettings(cfg); err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			progress := newProgressPrinter(stderr)
			res, err := driver.Compress(ctx, sess, progress.update)
			progress.finish()
			if err != nil {
				var execErr *engine.ExecError
				if errors.As(err, &execErr) && len(execErr.Tail) > 0 {
					fmt.Fprintln(stderr, strings.Join(execErr.Tail, "\n"))
				}
				return err
			}

			if verbose {
				fmt.Fprintln(stderr, process.FormatCommand(append([]string{"ffmpeg"}, res.Args...)))
			}

			out, err := driver.Output(res)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s (%s) in %s\n",
				output,
				humanBytes(res.InputSize),
				humanBytes(res.OutputSize),
				ratio(res.InputSize, res.OutputSize),
				res.Elapsed.Round(100*time.Millisecond))
			return nil
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <input>-compressed.<format>)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing output file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log engine output and print the command line")
	return cmd
}

func defaultOutputPath(input string, format settings.Format) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "-compressed." + string(format)
}

func sameFile(a, b string) bool {
	as, errA := os.Stat(a)
	bs, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return os.SameFile(as, bs)
}

// progressPrinter redraws a bar on a terminal and prints one line per
// tenth otherwise, so logs and pipes stay readable.
type progressPrinter struct {
	w        io.Writer
	tty      bool
	lastStep int
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	p := &progressPrinter{w: w, lastStep: -1}
	if f, ok := w.(*os.File); ok {
		p.tty = term.IsTerminal(int(f.Fd()))
	}
	return p
}

func (p *progressPrinter) update(percent float64) {
	if p.tty {
		fmt.Fprintf(p.w, "\r%s %5.1f%%", progressBar(percent, 30), percent)
		return
	}
	if step := int(percent) / 10; step > p.lastStep {
		p.lastStep = step
		fmt.Fprintf(p.w, "compressing %3d%%\n", step*10)
	}
}

func (p *progressPrinter) finish() {
	if p.tty {
		fmt.Fprintln(p.w)
	}
}

func progressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(width, filled))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func ratio(in, out int64) string {
	if in <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%% of the original", float64(out)/float64(in)*100)
}
