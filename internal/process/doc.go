// Package process runs external tools as supervised subprocesses.
//
// A Process starts a command from an argument vector, streams every
// stdout/stderr line to an optional OutputHandler and to a logger, and
// blocks until the command exits. Cancelling the context sends SIGINT
// and, when the command does not exit within the graceful timeout, SIGKILL.
//
//	p := process.New("ffmpeg", "/usr/bin/ffmpeg", args, logger)
//	p.SetDir(workdir)
//	p.SetOutputHandler(handler)
//	code, err := p.Run(ctx)
package process
