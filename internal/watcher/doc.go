// Package watcher runs the script file through an executor each time it is
// saved.
//
// The Loop registers a non-recursive fsnotify watch on the directory that
// holds the script and polls it with a short timeout so that context
// cancellation is noticed promptly. Events are collected until the queue
// has been quiet for a moment, and a batch holding a Write or Chmod on the
// script's base name runs the executor once, synchronously. Events for
// other files, other operations and queue overflows are ignored. While a
// query runs, further events wait in fsnotify's channel.
//
// Key features:
//   - Script bootstrap (an empty file is created when missing)
//   - Single goroutine watch-poll-execute cycle
//   - Instance lock so two runners do not execute the same script
//
// Example usage:
//
//	if _, err := watcher.PrepareScript("script.sql"); err != nil {
//		log.Fatal(err)
//	}
//
//	lock, err := watcher.AcquireLock(".sqlrunner.lock")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer lock.Release()
//
//	loop, err := watcher.New("script.sql", exec, watcher.Options{Logger: logger})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := loop.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package watcher
