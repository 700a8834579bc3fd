// Package export writes session snapshots to disk on request.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/pinnlab/internal/datauri"
	"github.com/san-kum/pinnlab/internal/geometry"
	"github.com/san-kum/pinnlab/internal/metrics"
	"github.com/san-kum/pinnlab/internal/params"
	"github.com/san-kum/pinnlab/internal/session"
	"github.com/san-kum/pinnlab/internal/viz"
)

const (
	metadataFile = "metadata.json"
	geometryFile = "geometry.csv"
	svgFile      = "geometry.svg"
)

var ErrNotFound = errors.New("export: not found")

type Store struct {
	baseDir string
	theme   viz.Theme
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, theme: viz.CurrentTheme, now: time.Now}
}

func (s *Store) Dir() string { return s.baseDir }

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type Metadata struct {
	ID            string                      `json:"id"`
	SessionID     string                      `json:"sessionId"`
	Timestamp     time.Time                   `json:"timestamp"`
	Parameters    params.SimulationParameters `json:"parameters"`
	Regime        string                      `json:"regime"`
	Shape         geometry.Shape              `json:"shape"`
	Width         int                         `json:"width"`
	Height        int                         `json:"height"`
	Losses        metrics.LossData            `json:"losses"`
	Analysis      string                      `json:"analysis,omitempty"`
	InitialPrompt string                      `json:"initialPrompt,omitempty"`
	Files         []string                    `json:"files"`
	// ImageURLs holds images that were links rather than data URIs.
	ImageURLs map[string]string `json:"imageUrls,omitempty"`
}

// Save writes snap into a new directory and returns its id. Images are
// written only when the snapshot holds them. A failed save leaves no
// directory behind.
func (s *Store) Save(snap session.Snapshot) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}
	now := s.now()
	runID, runDir, err := s.newRunDir(snap.ID, now)
	if err != nil {
		return "", err
	}
	if err := s.writeRun(runDir, runID, now, snap); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return runID, nil
}

func (s *Store) writeRun(runDir, runID string, now time.Time, snap session.Snapshot) error {
	meta := Metadata{
		ID:         runID,
		SessionID:  snap.ID,
		Timestamp:  now,
		Parameters: snap.Parameters,
		Regime:     snap.Regime,
		Shape:      snap.Shape,
		Width:      snap.Geometry.Width(),
		Height:     snap.Geometry.Height(),
		Losses:     snap.Losses,
		Analysis:   snap.Analysis,
	}

	if err := writeGeometryCSV(filepath.Join(runDir, geometryFile), snap.Geometry); err != nil {
		return err
	}
	meta.Files = append(meta.Files, geometryFile)

	svg := GeometryToSVG(snap.Geometry, s.theme, 12)
	if err := os.WriteFile(filepath.Join(runDir, svgFile), []byte(svg), 0644); err != nil {
		return err
	}
	meta.Files = append(meta.Files, svgFile)

	images := []struct {
		name, uri string
	}{
		{"streamline", snap.Images.Streamline},
		{"pressure", snap.Images.Pressure},
	}
	if ic := snap.InitialCondition; ic != nil {
		meta.InitialPrompt = ic.Prompt
		images = append(images, struct{ name, uri string }{"initial_condition", ic.Image})
	}
	for _, img := range images {
		if img.uri == "" {
			continue
		}
		if !strings.HasPrefix(img.uri, "data:") {
			if meta.ImageURLs == nil {
				meta.ImageURLs = make(map[string]string)
			}
			meta.ImageURLs[img.name] = img.uri
			continue
		}
		name, err := writeImage(runDir, img.name, img.uri)
		if err != nil {
			return fmt.Errorf("%s image: %w", img.name, err)
		}
		meta.Files = append(meta.Files, name)
	}

	f, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Store) newRunDir(sessionID string, now time.Time) (string, string, error) {
	prefix := sessionID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	if prefix == "" {
		prefix = "session"
	}
	base := fmt.Sprintf("%s_%d", prefix, now.Unix())
	runID := base
	for i := 1; ; i++ {
		dir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return runID, dir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
		runID = fmt.Sprintf("%s_%d", base, i)
	}
}

func writeGeometryCSV(path string, g geometry.Geometry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, row := range g {
		record := make([]string, len(row))
		for i, bc := range row {
			record[i] = bc.String()
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeImage(dir, name, uri string) (string, error) {
	mime, data, err := datauri.Parse(uri)
	if err != nil {
		return "", err
	}
	file := name + datauri.Extension(mime)
	return file, os.WriteFile(filepath.Join(dir, file), data, 0644)
}

// List returns every export, oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Metadata{}, nil
		}
		return nil, err
	}

	runs := make([]Metadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadGeometry reads the grid written by Save back.
func (s *Store) LoadGeometry(runID string) (geometry.Geometry, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, geometryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return geometry.Geometry{}, nil
	}

	g := geometry.New(len(records[0]), len(records))
	for y, record := range records {
		for x, field := range record {
			bc, err := geometry.ParseCondition(field)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", geometryFile, y+1, err)
			}
			g[y][x] = bc
		}
	}
	return g, nil
}
