package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/dynamicgap/logging"
	"go.viam.com/dynamicgap/utils"
)

// Watch reloads filePath into holder whenever it is written or replaced. A file that fails to
// read or validate is logged and the previous config stays in place. The returned workers stop
// when ctx is cancelled or Stop is called.
func Watch(ctx context.Context, filePath string, holder *Holder, logger logging.Logger) (utils.StoppableWorkers, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating config watcher")
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		goutils.UncheckedError(watcher.Close())
		return nil, err
	}
	// editors often replace the file instead of writing it, so watch the directory
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		goutils.UncheckedError(watcher.Close())
		return nil, errors.Wrapf(err, "watching %q", filePath)
	}
	logger = logger.Sublogger("config")

	return utils.NewStoppableWorkers(ctx, logger, func(ctx context.Context) {
		defer goutils.UncheckedErrorFunc(watcher.Close)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath || !event.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				cfg, err := Read(absPath)
				if err != nil {
					logger.Warnw("keeping previous config", "path", filePath, "error", err)
					continue
				}
				holder.Store(cfg)
				logger.Infow("config reloaded", "path", filePath, "config", cfg.String())
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnw("config watcher error", "error", err)
			}
		}
	}), nil
}
