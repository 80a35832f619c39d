package types

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Masked is the value carried by a pixel or cell that has no data.
var Masked = math.NaN()

// IsMasked reports whether v is the masked marker.
func IsMasked(v float64) bool {
	return math.IsNaN(v)
}

// Band is one named layer of an Image. A nil Pixels slice means the whole
// band is masked.
type Band struct {
	Name   string
	Pixels []float64
}

// Image represents a single multi-band sample of a raster source
type Image struct {
	Time  time.Time
	Bands []Band
}

// NewMaskedImage returns an image at t whose bands are all masked
func NewMaskedImage(t time.Time, bands []string) Image {
	img := Image{Time: t, Bands: make([]Band, len(bands))}
	for i, name := range bands {
		img.Bands[i] = Band{Name: name}
	}
	return img
}

// Band returns the pixels of the named band
func (img Image) Band(name string) ([]float64, bool) {
	for _, b := range img.Bands {
		if b.Name == name {
			return b.Pixels, true
		}
	}
	return nil, false
}

// BandNames returns band names in image order
func (img Image) BandNames() []string {
	names := make([]string, len(img.Bands))
	for i, b := range img.Bands {
		names[i] = b.Name
	}
	return names
}

// Pixels returns the pixel count of the first unmasked band, or 0.
func (img Image) Pixels() int {
	for _, b := range img.Bands {
		if b.Pixels != nil {
			return len(b.Pixels)
		}
	}
	return 0
}

// Masked reports whether the image carries no usable pixel at all
func (img Image) Masked() bool {
	for _, b := range img.Bands {
		for _, v := range b.Pixels {
			if !IsMasked(v) {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy of the image
func (img Image) Clone() Image {
	out := Image{Time: img.Time, Bands: make([]Band, len(img.Bands))}
	for i, b := range img.Bands {
		out.Bands[i] = Band{Name: b.Name}
		if b.Pixels != nil {
			out.Bands[i].Pixels = append([]float64(nil), b.Pixels...)
		}
	}
	return out
}

// Value returns one pixel of a band, Masked when absent
func (img Image) Value(band string, pixel int) float64 {
	px, ok := img.Band(band)
	if !ok || pixel < 0 || pixel >= len(px) {
		return Masked
	}
	return px[pixel]
}

// Series represents an ordered sequence of images from one source
type Series struct {
	Source string
	Bands  []string
	Images []Image
}

// Validate checks that timestamps are strictly increasing
func (s Series) Validate() error {
	for i := 1; i < len(s.Images); i++ {
		if !s.Images[i].Time.After(s.Images[i-1].Time) {
			return &PreconditionError{
				Op:     "series",
				Reason: fmt.Sprintf("%s: timestamp %s does not follow %s", s.Source, s.Images[i].Time.Format(time.RFC3339), s.Images[i-1].Time.Format(time.RFC3339)),
			}
		}
	}
	return nil
}

// Between returns the images whose timestamp falls in [start, end)
func (s Series) Between(start, end time.Time) []Image {
	lo := sort.Search(len(s.Images), func(i int) bool {
		return !s.Images[i].Time.Before(start)
	})
	hi := sort.Search(len(s.Images), func(i int) bool {
		return !s.Images[i].Time.Before(end)
	})
	if hi < lo {
		return nil
	}
	return s.Images[lo:hi]
}

// Map applies fn to every image and returns a new series
func (s Series) Map(bands []string, fn func(Image) Image) Series {
	out := Series{Source: s.Source, Bands: bands, Images: make([]Image, len(s.Images))}
	for i, img := range s.Images {
		out.Images[i] = fn(img)
	}
	return out
}

// MonthlyComposite is one image per calendar month tagged with its TimeKey.
// Image.Time is always the start of the month.
type MonthlyComposite struct {
	Key    TimeKey
	Source string
	Image  Image
}

// Label returns the "YYYY-MM" join label
func (c MonthlyComposite) Label() string {
	return c.Key.Label()
}

// TimeRange is a half-open [Start, End) interval
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t is in the range
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Geometry is a polygon exterior ring in lon/lat order
type Geometry struct {
	Exterior [][2]float64
}

// Region is one polygon of the study area. ID is a stable 1..N index.
type Region struct {
	ID       int
	Name     string
	Geometry Geometry
}
