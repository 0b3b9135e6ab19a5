// Package watcher turns a live ActivityManager log stream into launch counts.
//
// A Pipeline reads one log stream (usually a logcat subprocess) line by line.
// Each launch candidate opens a short-lived store handle; qualified launches
// are counted and every candidate triggers a refresh of the RefreshSink.
// A WakeListener refreshes the sink when an external wake trigger fires, and
// a Watcher runs both, restarting the pipeline whenever its stream ends.
//
// Key features:
//   - Subprocess stream with guaranteed kill-and-reap on every exit path
//   - Store writes serialized by the store's process-wide guard
//   - Prompt, leak-free Stop while a read is blocked
//   - Daemon mode support with PID file management
//
// Example usage:
//
//	src, err := watcher.NewCommandSource(cfg.LogCommand)
//	if err != nil {
//		return err
//	}
//	p := watcher.NewPipeline(src, watcher.OpenStore(cfg.DBPath), sink)
//	w, err := watcher.New(p, watcher.NewWakeListener(cfg.WakeFile, watcher.OpenStore(cfg.DBPath), sink))
//	if err != nil {
//		return err
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
//	defer stop()
//	return w.Run(ctx)
package watcher
