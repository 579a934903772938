package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/graphpad/graphpad/pkg/config"
	"github.com/graphpad/graphpad/pkg/engine"
	"github.com/graphpad/graphpad/pkg/viewer"
)

// watchOpts holds the command-line flags for the watch command.
type watchOpts struct {
	output  string // snapshot output path
	engine  string // layout engine name
	noCache bool   // bypass the render cache
}

// watchCommand creates the watch command: a live re-render loop driven by
// file changes, mirroring what an editor frontend does over the bridge.
func (c *CLI) watchCommand() *cobra.Command {
	var opts watchOpts

	cmd := &cobra.Command{
		Use:   "watch <file.gv>",
		Short: "Re-render a DOT file whenever it changes",
		Long: `Watch a Graphviz DOT file and re-render it on every save.

File changes are debounced and coalesced: however fast the file churns, at
most one render is in flight and only the newest content is rendered. Each
successful render updates the SVG snapshot on disk.

Keys: q quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if opts.engine == "" {
				opts.engine = cfg.Layout
			}
			return c.runWatch(cmd.Context(), args[0], cfg, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "snapshot file (input path with .svg if empty)")
	cmd.Flags().StringVarP(&opts.engine, "engine", "e", "", "layout engine: dot, neato, fdp, sfdp, circo, twopi, osage, patchwork")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the render cache")

	return cmd
}

// =============================================================================
// Messages
// =============================================================================

type watchRenderingMsg bool

type watchLoadedMsg bool

type watchZoomMsg float64

type watchErrMsg string

type watchSavedMsg string

type watchSaveFailedMsg struct{ err error }

type watchFileGoneMsg struct{ err error }

// watchRelay forwards coordinator notifications into the bubbletea program.
// The program is attached after construction and must be running before any
// message is sent, so startup work is triggered from the model's Init.
type watchRelay struct {
	mu      sync.Mutex
	program *tea.Program
}

func (r *watchRelay) attach(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

func (r *watchRelay) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (r *watchRelay) InitializationComplete()        {}
func (r *watchRelay) RenderError(diagnostic string)  { r.send(watchErrMsg(diagnostic)) }
func (r *watchRelay) RenderingStateChanged(on bool)  { r.send(watchRenderingMsg(on)) }
func (r *watchRelay) LoadedStateChanged(loaded bool) { r.send(watchLoadedMsg(loaded)) }
func (r *watchRelay) ZoomLevelChanged(level float64) { r.send(watchZoomMsg(level)) }

// =============================================================================
// Model
// =============================================================================

// watchModel is the bubbletea model for the live render view.
type watchModel struct {
	input  string
	output string
	layout engine.Layout
	coord  *viewer.Coordinator
	start  func() // begins file watching and the initial render

	rendering bool
	loaded    bool
	zoom      float64
	renders   int
	lastErr   string
	lastSave  time.Time
	quitting  bool
}

func (m watchModel) Init() tea.Cmd {
	if m.start == nil {
		return nil
	}
	return func() tea.Msg {
		m.start()
		return nil
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case watchRenderingMsg:
		m.rendering = bool(msg)

	case watchLoadedMsg:
		m.loaded = bool(msg)
		if m.loaded {
			m.renders++
			m.lastErr = ""
			return m, m.saveSnapshot()
		}

	case watchZoomMsg:
		m.zoom = float64(msg)

	case watchErrMsg:
		m.lastErr = string(msg)

	case watchSavedMsg:
		m.lastSave = time.Now()

	case watchSaveFailedMsg:
		m.lastErr = fmt.Sprintf("write snapshot: %v", msg.err)

	case watchFileGoneMsg:
		m.lastErr = msg.err.Error()
	}
	return m, nil
}

// saveSnapshot exports on a command goroutine; the coordinator query must
// not run on the goroutine delivering its notifications.
func (m watchModel) saveSnapshot() tea.Cmd {
	coord, output := m.coord, m.output
	return func() tea.Msg {
		markup, ok := coord.ExportSnapshot()
		if !ok {
			return nil
		}
		if err := os.WriteFile(output, []byte(markup), 0o644); err != nil {
			return watchSaveFailedMsg{err: err}
		}
		return watchSavedMsg(output)
	}
}

func (m watchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(StyleTitle.Render("graphpad watch"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  %s %s\n", StyleDim.Render("file:"), StyleValue.Render(m.input)))
	b.WriteString(fmt.Sprintf("  %s %s\n", StyleDim.Render("engine:"), StyleValue.Render(m.layout.String())))
	b.WriteString(fmt.Sprintf("  %s %s\n", StyleDim.Render("snapshot:"), StyleValue.Render(m.output)))
	b.WriteString("\n")

	switch {
	case m.rendering:
		b.WriteString("  " + StyleWarning.Render("rendering…") + "\n")
	case m.lastErr != "":
		b.WriteString("  " + StyleError.Render(iconError+" "+m.lastErr) + "\n")
	case m.loaded:
		status := fmt.Sprintf("%s loaded · zoom %.0f%% · %d renders", iconSuccess, m.zoom*100, m.renders)
		if !m.lastSave.IsZero() {
			status += " · saved " + m.lastSave.Format("15:04:05")
		}
		b.WriteString("  " + StyleSuccess.Render(status) + "\n")
	default:
		b.WriteString("  " + StyleDim.Render("waiting for content") + "\n")
	}

	b.WriteString("\n")
	b.WriteString("  " + StyleDim.Render("q quit"))
	b.WriteString("\n")
	return b.String()
}

// =============================================================================
// Runner
// =============================================================================

// runWatch wires the file watcher, coordinator, and TUI together.
func (c *CLI) runWatch(ctx context.Context, input string, cfg config.Config, opts *watchOpts) error {
	layout, err := engine.ParseLayout(opts.engine)
	if err != nil {
		return err
	}
	if _, err := os.Stat(input); err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".svg"
	}

	renderer, err := c.newRenderer(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}

	relay := &watchRelay{}
	coord := viewer.New(ctx, renderer, viewer.Options{
		Events:        relay,
		ZoomAnimation: cfg.ZoomAnimation(),
		MinZoom:       cfg.Zoom.Min,
		MaxZoom:       cfg.Zoom.Max,
	})
	defer coord.Close()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := watchModel{
		input:  input,
		output: output,
		layout: layout,
		coord:  coord,
		zoom:   1,
		start: func() {
			if err := c.watchFile(watchCtx, relay, coord, input, layout, cfg.Debounce()); err != nil {
				relay.send(watchFileGoneMsg{err: err})
				return
			}
			if data, err := os.ReadFile(input); err == nil {
				coord.SetData(string(data), layout)
			}
		},
	}

	program := tea.NewProgram(model)
	relay.attach(program)

	_, err = program.Run()
	return err
}

// watchFile starts the fsnotify loop. The file's directory is watched, not
// the file itself, so editors that save via rename keep working.
func (c *CLI) watchFile(ctx context.Context, relay *watchRelay, coord *viewer.Coordinator, input string, layout engine.Layout, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(input)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	target, err := filepath.Abs(input)
	if err != nil {
		target = input
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		submit := func() {
			data, err := os.ReadFile(input)
			if err != nil {
				relay.send(watchFileGoneMsg{err: err})
				return
			}
			coord.SetData(string(data), layout)
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				name, err := filepath.Abs(event.Name)
				if err != nil {
					name = event.Name
				}
				if name != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if debounce <= 0 {
					submit()
					continue
				}
				if timer == nil {
					timer = time.AfterFunc(debounce, submit)
				} else {
					timer.Reset(debounce)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.Logger.Warn("watch error", "err", err)
			}
		}
	}()

	return nil
}
