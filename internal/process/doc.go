// Package process runs a single encoder subprocess in its own process group.
//
// A Handle owns one child:
//   - Terminate sends SIGINT to the group so ffmpeg can flush and close the RTMP session
//   - Kill sends SIGKILL to the group
//   - Wait blocks up to a timeout for the exit to be reaped
//   - Diagnostics exposes stderr as a pipe the caller reads to EOF
//
// Stdout is discarded; ffmpeg writes everything of interest to stderr.
//
// Example:
//
//	h, err := process.Start("ffmpeg", args, logger)
//	if err != nil {
//	    return err
//	}
//	go drain(h.Diagnostics())
//	defer func() {
//	    _ = h.Terminate()
//	    if !h.Wait(10 * time.Second) {
//	        _ = h.Kill()
//	        h.Wait(5 * time.Second)
//	    }
//	}()
package process
