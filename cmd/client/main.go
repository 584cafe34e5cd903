package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"gopkg.in/urfave/cli.v1"

	"github.com/scythe504/skribblr-sync/internal"
	"github.com/scythe504/skribblr-sync/internal/config"
	"github.com/scythe504/skribblr-sync/internal/directory"
	"github.com/scythe504/skribblr-sync/internal/logging"
	"github.com/scythe504/skribblr-sync/internal/session"
	"github.com/scythe504/skribblr-sync/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := cli.NewApp()
	app.Name = "skribblr-client"
	app.Usage = "play a drawing-and-guessing room from the terminal"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "api", Value: cfg.APIURL, Usage: "room directory base URL", EnvVar: "API_URL"},
		cli.StringFlag{Name: "ws", Value: cfg.WSURL, Usage: "room channel base URL", EnvVar: "WS_URL"},
		cli.StringFlag{Name: "log-level", Value: cfg.LogLevel, Usage: "debug, info, warn or error", EnvVar: "LOG_LEVEL"},
		cli.DurationFlag{Name: "handshake-timeout", Value: 10 * time.Second, Usage: "room channel handshake timeout"},
		cli.DurationFlag{Name: "write-timeout", Value: 3 * time.Second, Usage: "per-frame write timeout on the room channel"},
	}
	app.Commands = []cli.Command{
		{
			Name:   "create",
			Usage:  "create a room and print its code",
			Action: createAction,
		},
		{
			Name:  "play",
			Usage: "join a room and play from stdin",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "room", Usage: "4-digit room code"},
				cli.StringFlag{Name: "name", Usage: "player name"},
				cli.BoolFlag{Name: "create", Usage: "create a new room and join it"},
				cli.StringFlag{Name: "surface", Usage: "WxH of the surface /draw positions refer to, canvas coordinates when unset"},
			},
			Action: playAction,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newController(c *cli.Context) (*session.Controller, zerolog.Logger) {
	log := logging.New(c.GlobalString("log-level"), os.Stderr)
	dir := directory.NewClient(c.GlobalString("api"), log)
	ch := transport.NewChannel(c.GlobalString("ws"), log,
		transport.WithDialer(&websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: c.GlobalDuration("handshake-timeout"),
		}),
		transport.WithWriteTimeout(c.GlobalDuration("write-timeout")),
	)
	return session.New(dir, ch, log), log
}

func createAction(c *cli.Context) error {
	ctl, _ := newController(c)
	code, err := ctl.CreateRoom(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(code)
	return nil
}

func playAction(c *cli.Context) error {
	name := strings.TrimSpace(c.String("name"))
	if name == "" {
		return errors.New("--name is required")
	}
	if c.String("room") == "" && !c.Bool("create") {
		return errors.New("either --room or --create is required")
	}
	var surf surface
	if v := c.String("surface"); v != "" {
		var err error
		if surf, err = parseSurface(v); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctl, log := newController(c)
	defer ctl.Close(context.Background())

	p := newPlayer(ctl, os.Stdout, log)
	p.surface = surf
	unwatch := ctl.Watch(p.onView)
	defer unwatch()
	unsubscribe := ctl.SubscribeFrames(p.onFrame)
	defer unsubscribe()

	if c.Bool("create") {
		code, err := ctl.CreateAndJoin(ctx, name)
		if err != nil {
			return err
		}
		p.printf("created room %s\n", code)
	} else if err := ctl.Join(ctx, c.String("room"), name); err != nil {
		return err
	}

	p.printf("commands: /start /next /score /draw x y color /leave /end, anything else is a guess\n")
	return p.run(ctx, os.Stdin)
}

type player struct {
	ctl     *session.Controller
	out     io.Writer
	log     zerolog.Logger
	surface surface

	mu      sync.Mutex
	last    string
	strokes internal.StrokeTracker
	drawn   bool
	ending  atomic.Bool
	done    chan struct{}
	once    sync.Once
}

func newPlayer(ctl *session.Controller, out io.Writer, log zerolog.Logger) *player {
	return &player{ctl: ctl, out: out, log: log, done: make(chan struct{})}
}

func (p *player) onView(v internal.ClientView) {
	line := render(v)
	p.mu.Lock()
	if line != p.last {
		p.last = line
		fmt.Fprintln(p.out, line)
	}
	p.mu.Unlock()

	if w := v.Winner(internal.WinningScore); w != nil && v.InRoom() && p.ending.CompareAndSwap(false, true) {
		p.printf("%s wins with %d points!\n", w.Name, w.Score)
		go func() {
			p.ctl.End(context.Background())
			p.finish()
		}()
	}
}

// onFrame renders the shared canvas as text. Consecutive samples are joined
// into segments; a new round or a correct guess wipes the canvas.
func (p *player) onFrame(ev internal.Event) {
	if internal.ClearsCanvas(ev) {
		p.mu.Lock()
		p.strokes.Reset()
		wiped := p.drawn
		p.drawn = false
		p.mu.Unlock()
		if wiped {
			p.printf("canvas cleared\n")
		}
		return
	}

	d, ok := ev.(internal.DrawData)
	if !ok {
		return
	}
	p.mu.Lock()
	seg, ok := p.strokes.Apply(d)
	p.drawn = true
	p.mu.Unlock()
	if ok {
		p.printf("stroke %s (%g, %g) -> (%g, %g)\n", seg.Color, seg.From.X, seg.From.Y, seg.To.X, seg.To.Y)
	}
}

func (p *player) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *player) finish() {
	p.once.Do(func() { close(p.done) })
}

// run reads commands until stdin closes, the room is left or ctx ends.
func (p *player) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.done:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := p.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle runs one input line and reports whether the session is over.
func (p *player) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	fields := strings.Fields(line)

	var err error
	switch fields[0] {
	case "/start":
		err = p.ctl.Start(ctx)
	case "/next":
		err = p.ctl.NextRound(ctx)
	case "/score":
		err = p.ctl.IncrementScore(ctx)
	case "/leave":
		p.ctl.Leave(ctx)
		return true
	case "/end":
		p.ctl.End(ctx)
		return true
	case "/draw":
		var d internal.DrawData
		d, err = parseDraw(fields[1:], p.surface)
		if err == nil && !p.ctl.SendDrawing(d) {
			err = errors.New("you cannot draw right now")
		}
	default:
		if !p.ctl.SendGuess(line) {
			err = errors.New("no round to guess in")
		}
	}
	if err != nil {
		p.log.Debug().Err(err).Str("input", line).Msg("[handle] command failed")
		p.printf("error: %v\n", err)
	}
	return false
}

// surface is the size of the area /draw positions are given in. The zero
// value means positions are canvas coordinates.
type surface struct {
	w, h float64
}

func parseSurface(s string) (surface, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return surface{}, fmt.Errorf("surface %q: want WxH", s)
	}
	w, err := strconv.ParseFloat(ws, 64)
	if err != nil || w <= 0 {
		return surface{}, fmt.Errorf("surface %q: bad width", s)
	}
	h, err := strconv.ParseFloat(hs, 64)
	if err != nil || h <= 0 {
		return surface{}, fmt.Errorf("surface %q: bad height", s)
	}
	return surface{w: w, h: h}, nil
}

// parseDraw reads "/draw x y color". Positions on a surface are scaled into
// the canvas and clamped; bare canvas coordinates must already lie inside it.
func parseDraw(args []string, surf surface) (internal.DrawData, error) {
	if len(args) != 3 {
		return internal.DrawData{}, errors.New("usage: /draw x y color")
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return internal.DrawData{}, fmt.Errorf("bad x: %w", err)
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return internal.DrawData{}, fmt.Errorf("bad y: %w", err)
	}
	if surf.w > 0 && surf.h > 0 {
		pt := internal.NormalizeCoordinates(x, y, surf.w, surf.h)
		x, y = pt.X, pt.Y
	} else if !internal.InCanvas(x, y) {
		return internal.DrawData{}, fmt.Errorf("(%g, %g) is outside the canvas", x, y)
	}
	return internal.DrawData{X: x, Y: y, Color: args[2]}, nil
}

func render(v internal.ClientView) string {
	if !v.InRoom() {
		return "not in a room"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[room %s]", v.RoomCode)
	if !v.Connected {
		b.WriteString(" connecting...")
		return b.String()
	}
	if v.InRound() {
		fmt.Fprintf(&b, " word: %s | %ds |", v.DisplayWord(), v.TimeRemaining)
	} else {
		b.WriteString(" waiting to start |")
	}
	for i, pl := range v.Players {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, " %s %d", pl.Name, pl.Score)
		if pl.IsDrawing {
			b.WriteString(" (drawing)")
		}
		if v.LocalPlayer != nil && pl.ID == v.LocalPlayer.ID {
			b.WriteString(" (you)")
		}
	}
	return b.String()
}
