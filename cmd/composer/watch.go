package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const defaultDebounce = 250 * time.Millisecond

func newWatchCommand(opts *rootOptions) *cobra.Command {
	sel := &selectionFlags{}
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [modules...]",
		Short: "Re-validate the selection whenever templates or modules change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, log, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer log.Close()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			cfg := svc.Config()
			roots := []string{cfg.TemplatesDir(), cfg.ModulesDir()}
			for _, root := range roots {
				if err := addTree(watcher, root); err != nil {
					return err
				}
			}

			out := newPrinter(cmd.OutOrStdout())
			req := sel.request(args)
			check := func() {
				out.printf("%s %s\n", out.dim.Render(time.Now().Format(time.TimeOnly)), out.title.Render("validating"))
				if err := svc.Reload(ctx); err != nil {
					out.printf("%s\n", out.bad.Render(err.Error()))
					return
				}
				result, err := svc.Validate(req)
				if err != nil {
					out.printf("%s\n", out.bad.Render(err.Error()))
					return
				}
				out.validation(result)
			}
			check()
			out.printf("%s\n", out.dim.Render("watching for changes, ctrl+c to stop"))
			return watchLoop(ctx, watcher, debounce, check, func(err error) {
				log.WithError(err).Warn("watch error")
			})
		},
	}
	addSelectionFlags(cmd, sel)
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "quiet period before re-validating")
	return cmd
}

// watchLoop calls onChange once per burst of events, after debounce has
// passed without another event. New directories are watched as they appear.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, onChange func(), onError func(error)) error {
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, event.Name); err != nil {
						onError(err)
					}
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			fire = time.After(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onError(err)
		case <-fire:
			fire = nil
			onChange()
		}
	}
}

// addTree watches root and every directory below it. A missing root is
// skipped; it is an empty catalog.
func addTree(watcher *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
