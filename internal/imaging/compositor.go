// Package imaging prepares the challenge image: it downloads the two card
// renderings, joins them side by side and shrinks the result to fit the
// platform's media size limit.
package imaging

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"github.com/ZeldaZach/ScryfallCardGolf/internal/scryfall"
)

// Twitter rejects media larger than this, so composites are shrunk to fit.
const (
	maxTweetImageWidth  = 1024
	maxTweetImageHeight = 512
)

// Compositor downloads and merges card images inside a working directory.
type Compositor struct {
	httpClient *http.Client
	dir        string
	logger     *zap.Logger
}

// NewCompositor creates a compositor working in dir.
func NewCompositor(dir string, logger *zap.Logger) *Compositor {
	return &Compositor{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		dir:        dir,
		logger:     logger,
	}
}

// Clear deletes leftover card PNGs from the working directory so a fresh
// round starts from empty state.
func (c *Compositor) Clear() error {
	leftovers, err := filepath.Glob(filepath.Join(c.dir, "*.png"))
	if err != nil {
		return fmt.Errorf("failed to list temp cards: %w", err)
	}
	for _, path := range leftovers {
		c.logger.Info("deleting file", zap.String("path", path))
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
	}
	return nil
}

// Download fetches a card's PNG rendering into the working directory and
// returns the saved path. Split card names contain "//", which is not
// filesystem-safe.
func (c *Compositor) Download(ctx context.Context, card *scryfall.Card) (string, error) {
	if card.ImageURIs.PNG == "" {
		return "", fmt.Errorf("card %s has no png image", card.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, card.ImageURIs.PNG, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image for %s: %w", card.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download for %s returned status %d", card.Name, resp.StatusCode)
	}

	img, err := png.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image for %s: %w", card.Name, err)
	}

	path := filepath.Join(c.dir, fmt.Sprintf("%s.png", strings.ReplaceAll(card.Name, "//", "_")))
	if err := savePNG(path, img); err != nil {
		return "", err
	}

	c.logger.Info("saved card image", zap.String("card", card.Name), zap.String("path", path))
	return path, nil
}

// Merge joins the given card images horizontally on an opaque canvas (sum of
// widths by max height), saves the composite named after both cards, and
// shrinks it if it exceeds the tweet size limit.
func (c *Compositor) Merge(paths []string, cards []*scryfall.Card) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("no card images to merge")
	}

	images := make([]image.Image, 0, len(paths))
	totalWidth, maxHeight := 0, 0
	for _, path := range paths {
		img, err := loadPNG(path)
		if err != nil {
			return "", err
		}
		images = append(images, img)
		totalWidth += img.Bounds().Dx()
		if h := img.Bounds().Dy(); h > maxHeight {
			maxHeight = h
		}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, totalWidth, maxHeight))
	xOffset := 0
	for _, img := range images {
		bounds := image.Rect(xOffset, 0, xOffset+img.Bounds().Dx(), img.Bounds().Dy())
		xdraw.Draw(canvas, bounds, img, img.Bounds().Min, xdraw.Src)
		xOffset += img.Bounds().Dx()
	}

	combinedName := fmt.Sprintf("%s-%s.png",
		strings.ReplaceAll(cards[0].Name, "/", "_"),
		strings.ReplaceAll(cards[1].Name, "/", "_"))
	savePath := filepath.Join(c.dir, combinedName)

	if err := savePNG(savePath, canvas); err != nil {
		return "", err
	}
	c.logger.Info("saved merged image", zap.String("path", savePath))

	// A failed resize keeps the original image; posting may then fail on
	// size, which surfaces at the tweet call instead.
	if err := c.shrinkToFit(savePath); err != nil {
		c.logger.Error("cannot create thumbnail", zap.String("path", savePath), zap.Error(err))
	}

	return savePath, nil
}

// shrinkToFit resizes the image at path in place so it fits within the tweet
// media bounds, preserving aspect ratio. Images already within bounds are
// left untouched.
func (c *Compositor) shrinkToFit(path string) error {
	img, err := loadPNG(path)
	if err != nil {
		return err
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	if width <= maxTweetImageWidth && height <= maxTweetImageHeight {
		return nil
	}

	var newWidth, newHeight int
	if width*maxTweetImageHeight > height*maxTweetImageWidth {
		// Width is the binding constraint
		newWidth = maxTweetImageWidth
		newHeight = height * maxTweetImageWidth / width
	} else {
		newHeight = maxTweetImageHeight
		newWidth = width * maxTweetImageHeight / height
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	xdraw.ApproxBiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	return savePNG(path, resized)
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode image %s: %w", path, err)
	}
	return nil
}
