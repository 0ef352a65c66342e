package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/leandrodaf/improv/internal/app"
	"github.com/leandrodaf/improv/internal/cli"
	"github.com/leandrodaf/improv/internal/config"
	"github.com/leandrodaf/improv/internal/logger"
	"github.com/leandrodaf/improv/internal/panel"
	"github.com/leandrodaf/improv/sdk/midi"
)

const (
	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale
)

var (
	bgColor         = color.RGBA{192, 192, 192, 255}
	panelColor      = color.RGBA{192, 192, 192, 255}
	borderColor     = color.RGBA{128, 128, 128, 255}
	bevelLight      = color.RGBA{255, 255, 255, 255}
	bevelDarker     = color.RGBA{64, 64, 64, 255}
	sliderFillColor = color.RGBA{0, 0, 128, 255}
)

type game struct {
	panel  *panel.Panel
	cancel context.CancelFunc
	errs   <-chan error
	status string

	textCache map[string]*ebiten.Image
}

func (g *game) Update() error {
	select {
	case err := <-g.errs:
		if err != nil {
			return fmt.Errorf("generation loop: %w", err)
		}
		return ebiten.Termination
	default:
	}

	if ebiten.IsWindowBeingClosed() {
		g.panel.RequestExit()
	}
	g.handleMouse()
	if g.panel.ExitRequested() {
		g.cancel()
		return ebiten.Termination
	}
	return nil
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.panel.Press(mx, my)
		return
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.panel.Release()
		return
	}
	if g.panel.Dragging() {
		g.panel.Drag(mx)
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.panel.Layout()

	g.drawSlider(screen, l.Density, l.DensityTrack, &g.panel.Density)
	g.drawSlider(screen, l.Temperature, l.TemperatureTrack, &g.panel.Temperature)
	g.drawButton(screen, l.Exit, "Exit")
	g.drawText(screen, g.status, l.Density.Min.X, l.Exit.Min.Y+(l.Exit.Dy()-lineH)/2)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.panel.Resize(outsideW, outsideH)
	return max(outsideW, panel.WindowW), max(outsideH, panel.WindowH)
}

func (g *game) drawSlider(screen *ebiten.Image, row, track image.Rectangle, s *panel.Slider) {
	fillRect(screen, row, panelColor)
	drawBorder(screen, row)
	g.drawText(screen, s.Text(), row.Min.X+8, row.Min.Y+(row.Dy()-lineH)/2)

	trackX, trackY, trackW := track.Min.X, track.Min.Y, track.Dx()
	// Sunken groove.
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW), 8, bevelDarker)
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW-1), 1, borderColor)
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), 1, 7, borderColor)

	fillW := int(float64(trackW) * s.Fraction())
	if fillW > 2 {
		ebitenutil.DrawRect(screen, float64(trackX+1), float64(trackY+1), float64(fillW-1), 6, sliderFillColor)
	}
	knobX := min(max(trackX+fillW-5, trackX-5), trackX+trackW-5)
	knob := image.Rect(knobX, trackY-4, knobX+10, trackY+12)
	fillRect(screen, knob, panelColor)
	drawBorder(screen, knob)
}

func (g *game) drawButton(screen *ebiten.Image, rect image.Rectangle, label string) {
	fillRect(screen, rect, panelColor)
	drawBorder(screen, rect)
	labelW := len([]rune(label)) * charW
	g.drawText(screen, label, rect.Min.X+(rect.Dx()-labelW)/2, rect.Min.Y+(rect.Dy()-lineH)/2)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x, y int) {
	if msg == "" {
		return
	}
	img := g.textCache[msg]
	if img == nil {
		img = ebiten.NewImage(max(1, len([]rune(msg))*7), 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) > 256 {
			g.textCache = make(map[string]*ebiten.Image, 64)
		}
		g.textCache[msg] = img
	}
	shadow := &ebiten.DrawImageOptions{}
	shadow.GeoM.Scale(textScale, textScale)
	shadow.GeoM.Translate(float64(x+2), float64(y+2))
	shadow.ColorScale.Scale(0, 0, 0, 1)
	screen.DrawImage(img, shadow)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
}

func fillRect(screen *ebiten.Image, r image.Rectangle, c color.Color) {
	ebitenutil.DrawRect(screen, float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()), c)
}

// drawBorder draws a raised bevel: light top and left, dark bottom and right.
func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	x, y := float64(rect.Min.X), float64(rect.Min.Y)
	w, h := float64(rect.Dx()), float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, bevelLight)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, bevelLight)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+h-2, w-3, 1, borderColor)
	ebitenutil.DrawRect(screen, x+w-2, y+1, 1, h-3, borderColor)
}

func main() {
	os.Exit(run())
}

func run() int {
	log := logger.NewZapLogger()
	defer log.Sync()

	cfg, err := cli.ParseOver("improv_ui", config.DefaultUI(), os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		log.Error("Invalid arguments", log.Field().Error("error", err))
		return 1
	}
	if err := cli.ConfigureLogger(log, cfg); err != nil {
		log.Error("Failed to configure logging", log.Field().Error("error", err))
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	session, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to start session", log.Field().Error("error", err))
		return 1
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("Errors while releasing the MIDI output", log.Field().Error("error", err))
		}
	}()

	errs := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		errs <- session.Run(ctx)
	}()

	g := &game{
		panel:     panel.New(session.Params),
		cancel:    cancel,
		errs:      errs,
		status:    fmt.Sprintf("Port: %s", session.Ports[0].Name),
		textCache: make(map[string]*ebiten.Image, 64),
	}

	ebiten.SetWindowSize(panel.WindowW, panel.WindowH)
	ebiten.SetWindowSizeLimits(panel.WindowW, panel.WindowH, -1, -1)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetWindowTitle("improv")
	fmt.Println("Playing generated MIDI in output port names:", midi.PortNames(session.Ports))

	uiErr := ebiten.RunGame(g)
	cancel()
	<-done
	if uiErr != nil {
		log.Error("UI failed", log.Field().Error("error", uiErr))
		return 1
	}
	fmt.Println("Stopping")
	return 0
}
