// Package watch reloads definition files when they change.
//
// A FileWatcher observes a definition file, or a directory of them, with
// fsnotify and calls its callback once per burst of events. Single files
// are watched through their parent directory so that editors which save
// by renaming a temporary file keep triggering reloads.
//
//	w, err := watch.NewFileWatcher(&watch.Config{Path: "conditions.yaml"}, logger)
//	if err != nil {
//	    return err
//	}
//	err = w.Watch(ctx, func() error { return svc.Reload() })
package watch
