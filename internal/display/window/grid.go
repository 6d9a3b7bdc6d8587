package window

import (
	"fmt"
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/pion/logging"

	"github.com/junsooki/camfeed/internal/display"
	camlog "github.com/junsooki/camfeed/internal/logging"
)

// Grid renders one tile per camera in an Ebitengine window.
type Grid struct {
	title  string
	width  int
	height int
	log    logging.LeveledLogger

	mu    sync.Mutex
	tiles []*display.Tile

	// only touched from the game loop
	textures map[*display.Tile]*ebiten.Image
}

// NewGrid creates a window of the given initial size.
func NewGrid(title string, width, height int, log logging.LeveledLogger) *Grid {
	if log == nil {
		log = camlog.Discard("display")
	}
	return &Grid{
		title:    title,
		width:    width,
		height:   height,
		log:      log,
		textures: make(map[*display.Tile]*ebiten.Image),
	}
}

// AddTile appends a tile for source and returns it for binding.
func (g *Grid) AddTile(source string) *display.Tile {
	t := display.NewTile(source)
	g.mu.Lock()
	g.tiles = append(g.tiles, t)
	g.mu.Unlock()
	return t
}

// Tiles returns the tiles in display order.
func (g *Grid) Tiles() []*display.Tile {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*display.Tile(nil), g.tiles...)
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
func (g *Grid) Run() error {
	ebiten.SetWindowSize(g.width, g.height)
	ebiten.SetWindowTitle(g.title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(g)
}

// --- ebiten.Game interface ---

func (g *Grid) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	return nil
}

func (g *Grid) Draw(screen *ebiten.Image) {
	tiles := g.Tiles()
	cells := display.GridLayout(screen.Bounds().Dx(), screen.Bounds().Dy(), len(tiles))

	reports := make([]func(), 0, len(tiles))
	for i, t := range tiles {
		reports = append(reports, t.Upload(func(img *image.RGBA) {
			g.writeTexture(t, img)
		}))
		g.drawTile(screen, cells[i], t)
	}

	// Confirm after the locks are gone; the renderer may release the
	// previous frame from inside the callback.
	for _, report := range reports {
		report()
	}
}

func (g *Grid) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

func (g *Grid) writeTexture(t *display.Tile, img *image.RGBA) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	tex := g.textures[t]
	if tex == nil || tex.Bounds().Dx() != w || tex.Bounds().Dy() != h {
		if tex != nil {
			tex.Deallocate()
		}
		tex = ebiten.NewImage(w, h)
		g.textures[t] = tex
		g.log.Debugf("%s: texture %dx%d", t.Source(), w, h)
	}
	tex.WritePixels(display.PackedPix(img))
}

func (g *Grid) drawTile(screen *ebiten.Image, cell image.Rectangle, t *display.Tile) {
	fw, fh := t.FrameSize()
	tex := g.textures[t]
	if fw == 0 || tex == nil {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s: waiting for frames", t.Source()), cell.Min.X+8, cell.Min.Y+8)
		return
	}

	scale, offsetX, offsetY := display.AspectFit(float64(cell.Dx()), float64(cell.Dy()), float64(fw), float64(fh))
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(float64(cell.Min.X)+offsetX, float64(cell.Min.Y)+offsetY)
	screen.SubImage(cell).(*ebiten.Image).DrawImage(tex, op)
	ebitenutil.DebugPrintAt(screen, t.Source(), cell.Min.X+8, cell.Min.Y+8)
}
