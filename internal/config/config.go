package config

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v2"
)

type SearchConfig struct {
	BaseURL       string `yaml:"base_url"`
	Collection    string `yaml:"collection"`
	Category      string `yaml:"category"`
	InitialDate   string `yaml:"initial_date"`
	FinalDate     string `yaml:"final_date"`
	PageSize      int    `yaml:"page_size"`
	PageOffset    int    `yaml:"page_offset"`
	WindowDays    int    `yaml:"window_days"`
	Direction     string `yaml:"direction"`
	ResultCap     int    `yaml:"result_cap"`
	ReadyMarker   string `yaml:"ready_marker"`
	RenderWaitSec int    `yaml:"render_wait_sec"`
	Backend       string `yaml:"backend"`
	UserAgent     string `yaml:"user_agent"`
}

type OCRConfig struct {
	Enabled    bool `yaml:"enabled"`
	DPI        int  `yaml:"dpi"`
	Grayscale  bool `yaml:"grayscale"`
	EngineMode int  `yaml:"engine_mode"`
	BatchPages int  `yaml:"batch_pages"`
}

type DBConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Connection  string `yaml:"connection"`
	Database    string `yaml:"database"`
	Collections struct {
		Cases     string `yaml:"cases"`
		Summaries string `yaml:"summaries"`
	} `yaml:"collections"`
}

type Config struct {
	BaseDir string       `yaml:"base_dir"`
	Workers int          `yaml:"workers"`
	Search  SearchConfig `yaml:"search"`
	OCR     OCRConfig    `yaml:"ocr"`
	DB      DBConfig     `yaml:"db"`
}

// pageSizes lists the result-page sizes the search service accepts.
var pageSizes = []int{10, 50, 100}

func Default() *Config {
	cfg := &Config{
		BaseDir: "data",
		Workers: runtime.NumCPU(),
		Search: SearchConfig{
			BaseURL:       "https://www.govinfo.gov/",
			Collection:    "USCOURTS",
			Category:      "Patent",
			InitialDate:   "1990-01-01",
			FinalDate:     time.Now().Format("2006-01-02"),
			PageSize:      100,
			WindowDays:    365,
			Direction:     "backward",
			ResultCap:     10000,
			ReadyMarker:   "btn-group-horizontal",
			RenderWaitSec: 10,
			Backend:       "colly",
			UserAgent:     "Mozilla/5.0 (compatible; govharvest/1.0)",
		},
		OCR: OCRConfig{
			Enabled:    true,
			DPI:        250,
			Grayscale:  true,
			EngineMode: 1,
			BatchPages: 10,
		},
	}
	cfg.DB.Collections.Cases = "cases"
	cfg.DB.Collections.Summaries = "summaries"
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize clamps fields back to values the search service and the
// external binaries accept.
func (c *Config) Normalize() {
	validSize := false
	for _, size := range pageSizes {
		if c.Search.PageSize == size {
			validSize = true
			break
		}
	}
	if !validSize {
		c.Search.PageSize = 100
	}
	if c.Search.PageOffset < 0 {
		c.Search.PageOffset = 0
	}
	if c.Search.WindowDays < 1 {
		c.Search.WindowDays = 365
	}
	if c.Search.Direction != "forward" {
		c.Search.Direction = "backward"
	}
	if c.Search.ResultCap < c.Search.PageSize {
		c.Search.ResultCap = 10000
	}
	if c.Search.RenderWaitSec < 1 {
		c.Search.RenderWaitSec = 10
	}
	if c.Search.Backend != "http" {
		c.Search.Backend = "colly"
	}
	if c.Search.FinalDate == "" {
		c.Search.FinalDate = time.Now().Format("2006-01-02")
	}
	if c.Workers < 1 {
		c.Workers = runtime.NumCPU()
	}
	if c.OCR.DPI < 1 {
		c.OCR.DPI = 250
	}
	if c.OCR.BatchPages < 1 {
		c.OCR.BatchPages = 10
	}
	if c.OCR.EngineMode < 0 || c.OCR.EngineMode > 3 {
		c.OCR.EngineMode = 1
	}
}

func (c *Config) RenderWait() time.Duration {
	return time.Duration(c.Search.RenderWaitSec) * time.Second
}

// Layout derives every on-disk location of a harvest run from the search
// details. RunHash labels the run so that reruns with the same dates land
// in the same directories.
type Layout struct {
	BaseDir    string
	Collection string
	Category   string
	RunHash    string
}

func NewLayout(cfg *Config) Layout {
	sum := md5.Sum([]byte(fmt.Sprintf("%s-%s-%s-%s",
		cfg.Search.Collection, cfg.Search.Category,
		cfg.Search.InitialDate, cfg.Search.FinalDate)))
	return Layout{
		BaseDir:    cfg.BaseDir,
		Collection: cfg.Search.Collection,
		Category:   cfg.Search.Category,
		RunHash:    hex.EncodeToString(sum[:]),
	}
}

func (l Layout) CategoryDir() string {
	return filepath.Join(l.BaseDir, l.Collection, l.Category)
}

func (l Layout) SnapshotPath() string {
	return filepath.Join(l.CategoryDir(), l.RunHash+".json")
}

func (l Layout) CourtDir(court string) string {
	return filepath.Join(l.CategoryDir(), court, l.RunHash)
}

// KindDir is where files of one kind (xml, pdf, text, json) live for a court.
func (l Layout) KindDir(court, kind string) string {
	return filepath.Join(l.CourtDir(court), kind)
}

func (l Layout) ErrorsDir() string {
	return filepath.Join(l.CategoryDir(), "errors")
}

func (l Layout) InfoPath() string {
	return filepath.Join(l.CategoryDir(), "info.json")
}

func (l Layout) GzipDir() string {
	return filepath.Join(l.BaseDir, l.Collection, "gzip")
}

func (l Layout) BulkArchivePath() string {
	return filepath.Join(l.BaseDir, l.Collection, l.Category+".tar.gz")
}
