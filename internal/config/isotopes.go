package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/radiodose/internal/dose/domain"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// IsotopeEntry is the on-disk shape of one isotope. Half-life may be given
// in seconds, minutes or hours; exactly one must be set.
type IsotopeEntry struct {
	ID                     string            `mapstructure:"id"`
	Name                   string            `mapstructure:"name"`
	HalfLifeSeconds        float64           `mapstructure:"halfLifeSeconds"`
	HalfLifeMinutes        float64           `mapstructure:"halfLifeMinutes"`
	HalfLifeHours          float64           `mapstructure:"halfLifeHours"`
	DoseUnit               string            `mapstructure:"doseUnit"`
	CommonProcedures       []string          `mapstructure:"commonProcedures"`
	ImagingProtocols       map[string]string `mapstructure:"imagingProtocols"`
	GlucoseCheckProcedures []string          `mapstructure:"glucoseCheckProcedures"`
}

// Isotope converts the entry into validated reference data.
func (e IsotopeEntry) Isotope() (domain.Isotope, error) {
	set := 0
	halfLife := 0.0
	if e.HalfLifeSeconds != 0 {
		set++
		halfLife = e.HalfLifeSeconds
	}
	if e.HalfLifeMinutes != 0 {
		set++
		halfLife = e.HalfLifeMinutes * 60
	}
	if e.HalfLifeHours != 0 {
		set++
		halfLife = e.HalfLifeHours * 3600
	}
	if set != 1 {
		return domain.Isotope{}, fmt.Errorf("%w: isotope %q needs exactly one half-life field", domain.ErrConfiguration, e.ID)
	}

	unit, err := domain.ParseActivityUnit(e.DoseUnit)
	if err != nil {
		return domain.Isotope{}, fmt.Errorf("isotope %q: %w", e.ID, err)
	}

	iso := domain.Isotope{
		ID:                     strings.TrimSpace(e.ID),
		Name:                   strings.TrimSpace(e.Name),
		HalfLifeSeconds:        halfLife,
		DoseUnit:               unit,
		CommonProcedures:       append([]string(nil), e.CommonProcedures...),
		ImagingProtocols:       make(map[string]string, len(e.ImagingProtocols)),
		GlucoseCheckProcedures: append([]string(nil), e.GlucoseCheckProcedures...),
	}
	for k, v := range e.ImagingProtocols {
		iso.ImagingProtocols[k] = v
	}
	if err := iso.Validate(); err != nil {
		return domain.Isotope{}, err
	}
	return iso, nil
}

// DefaultIsotopes is the catalog used when no isotopes.yml is present.
func DefaultIsotopes() []IsotopeEntry {
	return []IsotopeEntry{
		{
			ID:               "f18",
			Name:             "F-18 FDG",
			HalfLifeMinutes:  109.77,
			DoseUnit:         "MBq",
			CommonProcedures: []string{"PET/CT Whole Body", "PET/CT Brain", "Cardiac Viability"},
			ImagingProtocols: map[string]string{
				"PET/CT Whole Body": "fast 6h, rest 60 min after injection",
				"PET/CT Brain":      "dim room, 30-45 min uptake",
			},
			GlucoseCheckProcedures: []string{"*"},
		},
		{
			ID:               "tc99m",
			Name:             "Tc-99m",
			HalfLifeHours:    6.0067,
			DoseUnit:         "MBq",
			CommonProcedures: []string{"Bone Scan", "Myocardial Perfusion", "Thyroid Scan", "Renal Scan"},
			ImagingProtocols: map[string]string{
				"Bone Scan":            "hydrate, image 3h post injection",
				"Myocardial Perfusion": "rest/stress protocol",
			},
		},
		{
			ID:               "ga68",
			Name:             "Ga-68",
			HalfLifeMinutes:  67.71,
			DoseUnit:         "MBq",
			CommonProcedures: []string{"PSMA PET/CT", "DOTATATE PET/CT"},
			ImagingProtocols: map[string]string{
				"PSMA PET/CT": "image 60 min post injection",
			},
		},
		{
			ID:               "i131",
			Name:             "I-131",
			HalfLifeHours:    192.6048,
			DoseUnit:         "mCi",
			CommonProcedures: []string{"Thyroid Ablation", "Whole Body Scan"},
		},
		{
			ID:               "lu177",
			Name:             "Lu-177",
			HalfLifeHours:    159.528,
			DoseUnit:         "GBq",
			CommonProcedures: []string{"PSMA Therapy", "DOTATATE Therapy"},
		},
	}
}

// IsotopeCatalog is a validated, immutable set of isotopes keyed by id.
type IsotopeCatalog struct {
	order []string
	byID  map[string]domain.Isotope
}

// NewIsotopeCatalog validates entries and rejects duplicate ids.
func NewIsotopeCatalog(entries []IsotopeEntry) (IsotopeCatalog, error) {
	if len(entries) == 0 {
		return IsotopeCatalog{}, fmt.Errorf("%w: isotopes cannot be empty", domain.ErrConfiguration)
	}
	cat := IsotopeCatalog{byID: make(map[string]domain.Isotope, len(entries))}
	for _, e := range entries {
		iso, err := e.Isotope()
		if err != nil {
			return IsotopeCatalog{}, err
		}
		if _, dup := cat.byID[iso.ID]; dup {
			return IsotopeCatalog{}, fmt.Errorf("%w: duplicate isotope id %q", domain.ErrConfiguration, iso.ID)
		}
		cat.byID[iso.ID] = iso
		cat.order = append(cat.order, iso.ID)
	}
	return cat, nil
}

// Lookup returns an isotope by id.
func (c IsotopeCatalog) Lookup(id string) (domain.Isotope, bool) {
	iso, ok := c.byID[strings.TrimSpace(id)]
	return iso, ok
}

// All returns isotopes in file order.
func (c IsotopeCatalog) All() []domain.Isotope {
	out := make([]domain.Isotope, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

type IsotopeCatalogHolder struct {
	current atomic.Value // holds IsotopeCatalog
	source  string
}

// NewIsotopeCatalogHolderFromConfig loads the catalog named by cfg.
func NewIsotopeCatalogHolderFromConfig(cfg Config, log *zap.Logger) (*IsotopeCatalogHolder, error) {
	return NewIsotopeCatalogHolder(cfg.IsotopeCatalogPath, log)
}

// NewIsotopeCatalogHolder reads isotopes.yml and keeps it current. An
// explicit path must exist; without one the standard locations are searched
// and the built-in defaults are used when nothing is found.
func NewIsotopeCatalogHolder(path string, log *zap.Logger) (*IsotopeCatalogHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.isotopes")

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("isotopes")
		v.SetConfigType("yml")
		v.AddConfigPath("/var/lib/radiodose/config") // Volume-mounted config
		v.AddConfigPath("/etc/radiodose")            // System config
		v.AddConfigPath(".")                         // Current directory (dev mode)
	}

	v.SetEnvPrefix("RADIODOSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fromFile := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read isotope catalog: %w", err)
		}
		fromFile = false
	}

	var cat IsotopeCatalog
	var err error
	if fromFile {
		cat, err = decodeCatalog(v)
	} else {
		cat, err = NewIsotopeCatalog(DefaultIsotopes())
	}
	if err != nil {
		return nil, err
	}

	holder := &IsotopeCatalogHolder{source: "defaults"}
	holder.current.Store(cat)
	if !fromFile {
		log.Info("isotope catalog file not found, using built-in defaults", zap.Int("isotopes", len(cat.order)))
		return holder, nil
	}

	holder.source = v.ConfigFileUsed()
	log.Info("isotope catalog loaded", zap.String("file", holder.source), zap.Int("isotopes", len(cat.order)))

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeCatalog(v)
		if err != nil {
			log.Warn("isotope catalog reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("isotope catalog reloaded", zap.String("file", e.Name), zap.Int("isotopes", len(updated.order)))
	})
	v.WatchConfig()

	return holder, nil
}

// NewStaticIsotopeCatalogHolder wraps an already-built catalog.
func NewStaticIsotopeCatalogHolder(cat IsotopeCatalog) *IsotopeCatalogHolder {
	holder := &IsotopeCatalogHolder{source: "static"}
	holder.current.Store(cat)
	return holder
}

func (h *IsotopeCatalogHolder) Get() IsotopeCatalog {
	return h.current.Load().(IsotopeCatalog)
}

// Source names the file the catalog came from, "defaults" or "static".
func (h *IsotopeCatalogHolder) Source() string {
	return h.source
}

func decodeCatalog(v *viper.Viper) (IsotopeCatalog, error) {
	var entries []IsotopeEntry
	if err := v.UnmarshalKey("isotopes", &entries); err != nil {
		return IsotopeCatalog{}, fmt.Errorf("%w: decode isotopes: %v", domain.ErrConfiguration, err)
	}
	return NewIsotopeCatalog(entries)
}
