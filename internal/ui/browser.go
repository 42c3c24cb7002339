package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/sonoscope/internal/media"
)

// BrowserSelectedMsg carries the clip chosen in the browser. A clip picked
// inside a clip list also carries the whole list and its index there.
type BrowserSelectedMsg struct {
	Path  string
	Queue []string
	Index int
}

// BrowserCancelledMsg reports that the browser was dismissed.
type BrowserCancelledMsg struct{}

type clipItem struct {
	name string
	path string
}

func (i clipItem) Title() string       { return i.name }
func (i clipItem) Description() string { return strings.ToLower(filepath.Ext(i.path)) }
func (i clipItem) FilterValue() string { return i.name }

type clipListItem struct {
	name string
	path string
}

func (i clipListItem) Title() string       { return i.name + "/" }
func (i clipListItem) Description() string { return "clip list" }
func (i clipListItem) FilterValue() string { return i.name }

// BrowserModel lists the clips of a directory. Clip lists (.m3u, .pls) open
// as a nested listing.
type BrowserModel struct {
	list   list.Model
	dir    string
	inList string
	err    error
}

// NewBrowser scans dir for supported clips and clip lists.
func NewBrowser(dir string) BrowserModel {
	items, err := scanDir(dir)
	if err != nil {
		return BrowserModel{dir: dir, err: err}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"}).
		BorderLeftForeground(accentColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}).
		BorderLeftForeground(accentColor)

	l := list.New(items, delegate, 80, 20)
	l.Title = "sonoscope"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = headerStyle

	return BrowserModel{list: l, dir: dir}
}

func scanDir(dir string) ([]list.Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory: %w", err)
	}
	var lists, clips []list.Item
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		path := filepath.Join(dir, name)
		base := strings.TrimSuffix(name, filepath.Ext(name))
		switch {
		case media.IsClipListExt(ext):
			lists = append(lists, clipListItem{name: base, path: path})
		case media.IsSupportedExt(ext):
			clips = append(clips, clipItem{name: base, path: path})
		}
	}
	return append(lists, clips...), nil
}

func clipListItems(path string) ([]list.Item, error) {
	paths, err := media.ReadClipList(path)
	if err != nil {
		return nil, err
	}
	playable := media.PlayableClips(paths)
	if len(playable) == 0 {
		return nil, fmt.Errorf("%s has no playable clips", filepath.Base(path))
	}
	items := make([]list.Item, len(playable))
	for i, p := range playable {
		base := filepath.Base(p)
		items[i] = clipItem{name: strings.TrimSuffix(base, filepath.Ext(base)), path: p}
	}
	return items, nil
}

// listQueue returns the clips of the open clip list and the index of path.
func (m BrowserModel) listQueue(path string) ([]string, int) {
	var paths []string
	index := 0
	for _, it := range m.list.Items() {
		clip, ok := it.(clipItem)
		if !ok {
			continue
		}
		if clip.path == path {
			index = len(paths)
		}
		paths = append(paths, clip.path)
	}
	return paths, index
}

func (m BrowserModel) Err() error { return m.err }

func (m BrowserModel) Init() tea.Cmd {
	return tea.SetWindowTitle("sonoscope")
}

func (m BrowserModel) Update(msg tea.Msg) (BrowserModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.err != nil {
			if isQuit(msg) {
				return m, cancelled
			}
			return m, nil
		}
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			switch item := m.list.SelectedItem().(type) {
			case clipItem:
				sel := BrowserSelectedMsg{Path: item.path}
				if m.inList != "" {
					sel.Queue, sel.Index = m.listQueue(item.path)
				}
				return m, func() tea.Msg { return sel }
			case clipListItem:
				items, err := clipListItems(item.path)
				if err != nil {
					return m, m.list.NewStatusMessage(errorStyle.Render(err.Error()))
				}
				m.inList = item.name
				m.list.Title = "sonoscope / " + item.name
				return m, m.list.SetItems(items)
			}
			return m, nil
		case "esc":
			if m.inList != "" {
				items, err := scanDir(m.dir)
				if err != nil {
					m.err = err
					return m, nil
				}
				m.inList = ""
				m.list.Title = "sonoscope"
				return m, m.list.SetItems(items)
			}
			return m, cancelled
		case "q", "ctrl+c":
			return m, cancelled
		}

	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 2)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func cancelled() tea.Msg { return BrowserCancelledMsg{} }

func (m BrowserModel) View() string {
	if m.err != nil {
		return "\n  " + errorStyle.Render(m.err.Error()) + "\n\n  " + helpStyle.Render("q quit") + "\n"
	}
	return m.list.View()
}
