package config

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce window: editors often emit several events per save, and
// atomic saves (write temp, rename over) show up as create/rename.
const reloadDebounce = 200 * time.Millisecond

// Watch observes the config file and delivers every valid new config on
// the returned channel. Invalid edits are logged and skipped so a
// half-saved file never kills a running daemon. The channel is closed
// when ctx is done.
func Watch(ctx context.Context, path string) (<-chan Config, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: atomic saves replace the inode
	// and a file-level watch silently dies with it.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan Config, 1)

	go func() {
		defer watcher.Close()
		defer close(out)

		var lastReload time.Time

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if time.Since(lastReload) < reloadDebounce {
					continue
				}

				cfg, err := Load(path)
				if err != nil {
					log.Printf("Config watcher: ignoring invalid config: %v", err)
					continue
				}

				log.Printf("Config file changed, reloading")
				lastReload = time.Now()

				// Latest-wins: drop a stale pending config if the
				// consumer has not picked it up yet.
				select {
				case out <- cfg:
				default:
					select {
					case <-out:
					default:
					}
					out <- cfg
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("Config watcher error: %v", err)
			}
		}
	}()

	return out, nil
}
