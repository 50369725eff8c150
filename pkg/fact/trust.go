package fact

import (
	"math"
	"time"
)

const hoursPerDay = 24

// TrustConfig holds every constant the trust engine scores with. It is passed
// explicitly so callers and tests can vary it.
type TrustConfig struct {
	HumanBase  float64 `toml:"human_base"`
	AIBase     float64 `toml:"ai_base"`
	SystemBase float64 `toml:"system_base"`

	LocalMultiplier   float64 `toml:"local_multiplier"`
	CompanyMultiplier float64 `toml:"company_multiplier"`
	GlobalMultiplier  float64 `toml:"global_multiplier"`
	NpmMultiplier     float64 `toml:"npm_multiplier"`

	// DecayStartDays is the grace period before a fact starts losing trust.
	DecayStartDays int     `toml:"decay_start_days"`
	DecayRate      float64 `toml:"decay_rate"`
	DecayFloor     float64 `toml:"decay_floor"`

	ConfirmationBoost    float64 `toml:"confirmation_boost"`
	SupersededPenalty    float64 `toml:"superseded_penalty"`
	DeprecatedMultiplier float64 `toml:"deprecated_multiplier"`
	ArchivedMultiplier   float64 `toml:"archived_multiplier"`
	CorrectionMultiplier float64 `toml:"correction_multiplier"`
}

// DefaultTrustConfig returns the stock trust constants.
func DefaultTrustConfig() TrustConfig {
	return TrustConfig{
		HumanBase:  0.8,
		AIBase:     0.5,
		SystemBase: 0.6,

		LocalMultiplier:   1.0,
		CompanyMultiplier: 0.95,
		GlobalMultiplier:  0.7,
		NpmMultiplier:     0.6,

		DecayStartDays: 90,
		DecayRate:      0.005,
		DecayFloor:     0.2,

		ConfirmationBoost:    0.1,
		SupersededPenalty:    0.3,
		DeprecatedMultiplier: 0.5,
		ArchivedMultiplier:   0.3,
		CorrectionMultiplier: 0.9,
	}
}

// TrustEngine computes 0.0 to 1.0 reliability scores from authorship,
// provenance, age, status and confirmations. It holds no state besides its
// configuration and clock.
type TrustEngine struct {
	cfg TrustConfig
	now func() time.Time
}

// TrustOption configures a TrustEngine.
type TrustOption func(*TrustEngine)

// WithTrustClock overrides the engine's clock.
func WithTrustClock(now func() time.Time) TrustOption {
	return func(e *TrustEngine) {
		e.now = now
	}
}

// NewTrustEngine creates an engine scoring with cfg.
func NewTrustEngine(cfg TrustConfig, opts ...TrustOption) *TrustEngine {
	e := &TrustEngine{
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultTrustEngine = NewTrustEngine(DefaultTrustConfig())

// DefaultTrustEngine returns an engine using DefaultTrustConfig.
func DefaultTrustEngine() *TrustEngine {
	return defaultTrustEngine
}

// Config returns the engine's configuration.
func (e *TrustEngine) Config() TrustConfig {
	return e.cfg
}

func (e *TrustEngine) authorBase(a AuthorType) float64 {
	switch a {
	case AuthorHuman:
		return e.cfg.HumanBase
	case AuthorSystem:
		return e.cfg.SystemBase
	case AuthorAI:
		return e.cfg.AIBase
	}
	return e.cfg.AIBase
}

func (e *TrustEngine) sourceMultiplier(s Source) float64 {
	switch s {
	case SourceLocal:
		return e.cfg.LocalMultiplier
	case SourceCompany:
		return e.cfg.CompanyMultiplier
	case SourceGlobal:
		return e.cfg.GlobalMultiplier
	case SourceNpm:
		return e.cfg.NpmMultiplier
	}
	return e.cfg.LocalMultiplier
}

// InitialTrust is the author base scaled by the source multiplier.
func (e *TrustEngine) InitialTrust(author AuthorType, source Source) float64 {
	return clamp01(e.authorBase(author) * e.sourceMultiplier(source))
}

// ApplyDecay lowers trust linearly per whole day past the grace period, never
// below the decay floor.
func (e *TrustEngine) ApplyDecay(trust float64, createdAt time.Time) float64 {
	ageDays := int(e.now().Sub(createdAt).Hours() / hoursPerDay)
	if ageDays <= e.cfg.DecayStartDays {
		return trust
	}

	decay := float64(ageDays-e.cfg.DecayStartDays) * e.cfg.DecayRate
	return max(trust-decay, e.cfg.DecayFloor)
}

// ApplyConfirmationBoost adds one confirmation's worth of trust, capped at 1.
func (e *TrustEngine) ApplyConfirmationBoost(trust float64) float64 {
	return min(trust+e.cfg.ConfirmationBoost, 1.0)
}

// ApplySupersededPenalty subtracts the superseded penalty, floored at 0.
func (e *TrustEngine) ApplySupersededPenalty(trust float64) float64 {
	return max(trust-e.cfg.SupersededPenalty, 0.0)
}

// EffectiveTrust scores a fact at read time. The order is fixed: decay, then
// the status adjustment, then the correction haircut, then one boost per
// confirmation, then the clamp.
func (e *TrustEngine) EffectiveTrust(base float64, createdAt time.Time, status Status, typ Type, confirmations int) float64 {
	trust := e.ApplyDecay(base, createdAt)

	switch status {
	case StatusActive, StatusPendingReview:
	case StatusSuperseded:
		trust = e.ApplySupersededPenalty(trust)
	case StatusDeprecated:
		trust *= e.cfg.DeprecatedMultiplier
	case StatusArchived:
		trust *= e.cfg.ArchivedMultiplier
	}

	switch typ {
	case TypeCorrection:
		trust *= e.cfg.CorrectionMultiplier
	case TypeFact, TypeExtension, TypeWarning, TypeDeprecation:
	}

	for range max(confirmations, 0) {
		trust = e.ApplyConfirmationBoost(trust)
	}

	return clamp01(trust)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0.0), 1.0)
}
