// Package ui is the terminal front end: it picks a clip, has it analyzed,
// plays it, and feeds playback events to the tracker that drives the scope.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/olivier-w/sonoscope/internal/player"
	"github.com/olivier-w/sonoscope/internal/store"
	"github.com/olivier-w/sonoscope/internal/tracker"
	"github.com/olivier-w/sonoscope/internal/upload"
	"github.com/olivier-w/sonoscope/internal/util"
	"github.com/olivier-w/sonoscope/internal/visualizer"
	"github.com/olivier-w/sonoscope/internal/window"
)

// Playback is the audio side of a loaded clip.
type Playback interface {
	Play()
	TogglePause()
	Paused() bool
	Started() bool
	Position() time.Duration
	Duration() time.Duration
	Done() <-chan struct{}
	Close()
}

// Options wires the model to its collaborators.
type Options struct {
	Uploader     upload.Uploader
	Open         func(path string) (Playback, error)
	Dir          string
	Tick         time.Duration
	Resolver     window.Resolver
	MinFrequency float64
	MaxFrequency float64
	OscHeight    int
	SpecHeight   int
	Logger       *zap.Logger
}

// OpenPlayer opens a clip with the audio device.
func OpenPlayer(path string) (Playback, error) {
	p, err := player.Open(path)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Model is the Bubbletea model for the sonoscope TUI.
type Model struct {
	opts    Options
	log     *zap.Logger
	scope   *visualizer.Scope
	tracker *tracker.Tracker

	browser   BrowserModel
	browsing  bool
	spinner   spinner.Model
	analyzing string

	player   Playback
	meta     player.Metadata
	duration time.Duration
	elapsed  time.Duration
	waiting  bool
	ended    bool

	queue    clipQueue
	errMsg   string
	width    int
	height   int
	quitting bool
}

// New builds the model. The first of clips is analyzed right away and the
// rest stay queued for n/p; without clips the browser opens on opts.Dir.
func New(opts Options, clips ...string) Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Open == nil {
		opts.Open = OpenPlayer
	}
	if opts.Tick <= 0 {
		opts.Tick = 200 * time.Millisecond
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.OscHeight <= 0 {
		opts.OscHeight = 6
	}
	if opts.SpecHeight <= 0 {
		opts.SpecHeight = 12
	}

	scope := visualizer.NewScope(opts.MinFrequency, opts.MaxFrequency)
	scope.SetSize(60, opts.OscHeight, opts.SpecHeight)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentColor)

	m := Model{
		opts:    opts,
		log:     opts.Logger,
		scope:   scope,
		spinner: s,
		queue:   newClipQueue(clips, 0),
		tracker: tracker.New(store.New(), scope,
			tracker.WithLogger(opts.Logger),
			tracker.WithResolver(opts.Resolver)),
	}
	if m.queue.Current() == "" {
		m.browser = NewBrowser(opts.Dir)
		m.browsing = true
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.opts.Tick)}
	if m.browsing {
		cmds = append(cmds, m.browser.Init())
	} else {
		cmds = append(cmds, m.startAnalysis(m.queue.Current()))
	}
	return tea.Batch(cmds...)
}

// startAnalysis uploads the clip and opens it for playback off the event loop.
func (m Model) startAnalysis(path string) tea.Cmd {
	uploader, open := m.opts.Uploader, m.opts.Open
	log := m.log
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		log.Info("analyzing clip", zap.String("path", path))
		res, err := uploader.Upload(context.Background(), path)
		if err != nil {
			return analyzedMsg{path: path, err: err}
		}
		p, openErr := open(path)
		return analyzedMsg{
			path:    path,
			result:  res,
			player:  p,
			meta:    player.ReadMetadata(path),
			openErr: openErr,
		}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.handleMsg(msg)
	return next, cmd
}

func (m Model) handleMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.scope.SetSize(max(msg.Width-8, 10), m.opts.OscHeight, m.opts.SpecHeight)
		if !m.browsing {
			return m, nil
		}
		var cmd tea.Cmd
		m.browser, cmd = m.browser.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if m.analyzing == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case BrowserSelectedMsg:
		m.browsing = false
		if len(msg.Queue) > 0 {
			m.queue = newClipQueue(msg.Queue, msg.Index)
		} else {
			m.queue = newClipQueue([]string{msg.Path}, 0)
		}
		m.analyzing = msg.Path
		m.errMsg = ""
		return m, m.startAnalysis(msg.Path)

	case BrowserCancelledMsg:
		if m.player == nil && m.tracker.State() == tracker.Idle {
			m.quitting = true
			return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
		}
		m.browsing = false
		return m, nil

	case analyzedMsg:
		return m.handleAnalyzed(msg)

	case tickMsg:
		m.handleTick()
		return m, tickCmd(m.opts.Tick)

	case playbackEndedMsg:
		if msg.player != m.player || m.player == nil {
			return m, nil
		}
		m.waiting = false
		if m.quitting {
			return m, nil
		}
		m.ended = true
		m.elapsed = m.duration
		m.dispatch(tracker.PositionChanged{CurrentTime: m.duration.Seconds()})
		return m, nil

	case tea.KeyMsg:
		if m.browsing {
			var cmd tea.Cmd
			m.browser, cmd = m.browser.Update(msg)
			return m, cmd
		}
		return m.handleKey(msg)
	}

	if m.browsing {
		var cmd tea.Cmd
		m.browser, cmd = m.browser.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleAnalyzed(msg analyzedMsg) (Model, tea.Cmd) {
	m.analyzing = ""
	if msg.err != nil {
		m.dispatch(tracker.UploadFailed{Err: msg.err})
		m.errMsg = fmt.Sprintf("analysis failed: %v", msg.err)
		if m.tracker.State() == tracker.Idle {
			m.browser = NewBrowser(m.opts.Dir)
			m.browsing = true
		}
		return m, nil
	}

	if m.player != nil {
		m.player.Close()
	}
	m.player = msg.player
	m.meta = msg.meta
	m.elapsed = 0
	m.waiting = false
	m.ended = false
	m.duration = util.Seconds(msg.result.Duration())
	if m.player != nil {
		m.duration = m.player.Duration()
	}
	if msg.openErr != nil {
		m.errMsg = fmt.Sprintf("cannot play %s: %v", msg.meta.Title, msg.openErr)
	}

	m.scope.Reset(m.duration.Seconds())
	if err := m.dispatch(tracker.UploadCompleted{Result: msg.result}); err != nil {
		m.errMsg = err.Error()
		return m, nil
	}
	m.dispatch(tracker.MetadataLoaded{Duration: m.duration.Seconds()})
	return m, tea.SetWindowTitle(windowTitle(m.meta.Label(), false))
}

func (m *Model) handleTick() {
	if m.player == nil || !m.player.Started() || m.player.Paused() || m.ended {
		return
	}
	m.elapsed = m.player.Position()
	m.dispatch(tracker.PositionChanged{CurrentTime: m.elapsed.Seconds()})
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if isQuit(msg) {
		m.quitting = true
		if m.player != nil {
			m.player.Close()
		}
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	}
	switch msg.String() {
	case " ":
		if m.player == nil {
			return m, nil
		}
		if !m.player.Started() || m.ended {
			return m, m.play()
		}
		m.player.TogglePause()
		return m, tea.SetWindowTitle(windowTitle(m.meta.Label(), m.player.Paused()))
	case "r":
		if m.player == nil {
			return m, nil
		}
		return m, m.play()
	case "n", "p":
		if m.analyzing != "" {
			return m, nil
		}
		moved := m.queue.Advance
		if msg.String() == "p" {
			moved = m.queue.Previous
		}
		if !moved() {
			return m, nil
		}
		m.analyzing = m.queue.Current()
		m.errMsg = ""
		return m, m.startAnalysis(m.analyzing)
	case "o":
		if m.analyzing != "" {
			return m, nil
		}
		m.browser = NewBrowser(m.opts.Dir)
		m.browsing = true
		if m.width > 0 {
			m.browser, _ = m.browser.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		}
		return m, m.browser.Init()
	}
	return m, nil
}

// play restarts the clip from the beginning.
func (m *Model) play() tea.Cmd {
	m.player.Play()
	m.ended = false
	m.elapsed = 0
	m.dispatch(tracker.PlaybackBegan{})
	cmds := []tea.Cmd{tea.SetWindowTitle(windowTitle(m.meta.Label(), false))}
	if !m.waiting {
		m.waiting = true
		cmds = append(cmds, waitDone(m.player))
	}
	return tea.Batch(cmds...)
}

func (m Model) dispatch(ev tracker.Event) error {
	err := m.tracker.Dispatch(ev)
	if err != nil {
		m.log.Warn("event rejected", zap.String("event", ev.Name()), zap.Error(err))
	}
	return err
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.browsing {
		v := m.browser.View()
		if m.errMsg != "" {
			v += "\n  " + errorStyle.Render(m.errMsg)
		}
		return v
	}

	w := m.width
	if w < 30 {
		w = 70
	}

	var b strings.Builder
	b.WriteString("\n  " + headerStyle.Render("sonoscope") + "\n\n")

	if m.analyzing != "" {
		b.WriteString("  " + m.spinner.View() + " " + statusStyle.Render("analyzing "+m.analyzing) + "\n")
	} else if m.meta.Title != "" {
		b.WriteString("  " + titleStyle.Render(m.meta.Title) + "\n")
		if m.meta.Artist != "" {
			b.WriteString("  " + artistStyle.Render(m.meta.Artist) + "\n")
		}
	}
	b.WriteString("\n")

	if m.tracker.State() != tracker.Idle {
		b.WriteString(indent(panelStyle.Render(m.scope.OscillogramView())) + "\n")
		top, bottom := frequencyAxis(m.opts.MinFrequency, m.opts.MaxFrequency)
		b.WriteString("  " + axisStyle.Render(top) + "\n")
		b.WriteString(indent(panelStyle.Render(m.scope.SpectrogramView())) + "\n")
		b.WriteString("  " + axisStyle.Render(bottom) + "\n\n")

		elapsedStr := util.FormatDuration(m.elapsed)
		durationStr := util.FormatDuration(m.duration)
		barWidth := w - len(elapsedStr) - len(durationStr) - 6
		bar := renderProgressBar(m.elapsed.Seconds(), m.duration.Seconds(), barWidth)
		b.WriteString(fmt.Sprintf("  %s %s %s\n\n", timeStyle.Render(elapsedStr), bar, timeStyle.Render(durationStr)))

		paused := m.player == nil || m.player.Paused()
		icon, text := statusText(m.tracker.State(), paused, m.ended)
		osc, spec := m.scope.Samples()
		status := fmt.Sprintf("%s  %s  %d samples  %d bins", icon, text, osc, spec)
		if m.queue.Len() > 1 {
			status += fmt.Sprintf("  clip %d/%d", m.queue.Position(), m.queue.Len())
		}
		b.WriteString("  " + statusStyle.Render(status) + "\n")
	}
	if m.errMsg != "" {
		b.WriteString("  " + errorStyle.Render(m.errMsg) + "\n")
	}
	b.WriteString("\n  " + helpStyle.Render(helpText(m.tracker.State() != tracker.Idle, m.queue.Len() > 1)) + "\n")
	return b.String()
}

func indent(block string) string {
	lines := strings.Split(block, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

func windowTitle(title string, paused bool) string {
	if paused {
		return "⏸ " + title + " · sonoscope"
	}
	return "▶ " + title + " · sonoscope"
}
