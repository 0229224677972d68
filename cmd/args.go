package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/videosqueeze/internal/ffmpeg"
	"github.com/smazurov/videosqueeze/internal/process"
)

// CreateArgsCmd creates the args command, a dry run of compress.
func CreateArgsCmd(rt *Runtime) *cobra.Command {
	var flags settingsFlags
	var duration float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "args <input>",
		Short: "Print the ffmpeg command compress would run",
		Long: `Translates the settings flags into the engine argument vector without touching the input. ` +
			`The filesize method needs the clip length; pass --duration or the 60 second fallback is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd.Flags(), loadPresets(cmd, rt.PresetsFile))
			if err != nil {
				return err
			}
			argv, err := ffmpeg.BuildArgs(ffmpeg.Input{
				InputName:  ffmpeg.InputName(filepath.Base(args[0])),
				OutputName: ffmpeg.OutputName(cfg.Format),
				Duration:   time.Duration(duration * float64(time.Second)),
			}, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(argv)
			}
			_, err = fmt.Fprintln(out, process.FormatCommand(append([]string{"ffmpeg"}, argv...)))
			return err
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().Float64Var(&duration, "duration", 0, "Source duration in seconds for the filesize method")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the argument vector as a JSON array")
	return cmd
}
