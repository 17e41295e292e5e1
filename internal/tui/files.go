package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	list "github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"knnviz/internal/dataset"
	"knnviz/internal/session"
)

type fileItem struct {
	title, desc string
	path        string
}

func (f fileItem) Title() string       { return f.title }
func (f fileItem) Description() string { return f.desc }
func (f fileItem) FilterValue() string { return f.title }

func (m *Model) refreshDir() {
	entries, err := os.ReadDir(m.cwd)
	if err != nil {
		m.status = "read dir error: " + err.Error()
		return
	}
	var items []list.Item
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.ToLower(filepath.Ext(name)) == ".csv" {
			items = append(items, fileItem{title: name, desc: "csv", path: filepath.Join(m.cwd, name)})
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].(fileItem).Title() < items[j].(fileItem).Title() })
	m.items = items
	m.l.SetItems(items)
	if len(items) == 0 {
		m.status = "no csv files in current directory"
	}
}

// loadPath imports a CSV dataset into the session. A failed load keeps the
// current data. With watch set, the file is watched for changes.
func (m *Model) loadPath(p string, watch bool) tea.Cmd {
	ds, err := dataset.Load(p)
	if err != nil {
		m.status = "load error: " + err.Error()
		m.sess.SetError(err)
		m.logger.Warn("dataset load failed", "path", p, "error", err)
		return nil
	}
	m.selPath = p
	m.sess.SetError(nil)
	m.apply(session.LoadData{Data: ds})
	m.status = "loaded: " + filepath.Base(p) +
		fmt.Sprintf("  rows=%d dropped=%d categories=%d", ds.Len(), ds.Dropped, len(ds.Categories))
	m.logger.Info("dataset loaded",
		"path", p,
		"rows", ds.Len(),
		"dropped", ds.Dropped,
		"features", len(ds.Features),
		"categories", len(ds.Categories))
	if !watch {
		return nil
	}
	return m.watch(p)
}

// watch replaces the dataset watcher.
func (m *Model) watch(p string) tea.Cmd {
	m.stopWatch()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := dataset.Watch(ctx, p, m.watchDebounce, m.logger)
	if err != nil {
		cancel()
		m.logger.Warn("dataset watch failed", "path", p, "error", err)
		return nil
	}
	m.watchCancel = cancel
	return waitForChange(p, ch)
}

func (m *Model) stopWatch() {
	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
}
