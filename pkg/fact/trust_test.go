package fact_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/meh/pkg/fact"
)

var _ = Describe("TrustEngine", func() {
	var (
		now    time.Time
		engine *fact.TrustEngine
	)

	daysAgo := func(d int) time.Time {
		return now.Add(-time.Duration(d) * 24 * time.Hour)
	}

	BeforeEach(func() {
		now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		engine = fact.NewTrustEngine(fact.DefaultTrustConfig(), fact.WithTrustClock(func() time.Time { return now }))
	})

	Describe("InitialTrust", func() {
		It("ranks human above system above AI", func() {
			human := engine.InitialTrust(fact.AuthorHuman, fact.SourceLocal)
			system := engine.InitialTrust(fact.AuthorSystem, fact.SourceLocal)
			ai := engine.InitialTrust(fact.AuthorAI, fact.SourceLocal)
			Expect(human).To(BeNumerically(">", system))
			Expect(system).To(BeNumerically(">", ai))
		})

		It("scales by source", func() {
			Expect(engine.InitialTrust(fact.AuthorHuman, fact.SourceLocal)).To(BeNumerically("~", 0.8, 1e-9))
			Expect(engine.InitialTrust(fact.AuthorAI, fact.SourceGlobal)).To(BeNumerically("~", 0.35, 1e-9))
			Expect(engine.InitialTrust(fact.AuthorHuman, fact.SourceCompany)).To(BeNumerically("~", 0.76, 1e-9))
			Expect(engine.InitialTrust(fact.AuthorSystem, fact.SourceNpm)).To(BeNumerically("~", 0.36, 1e-9))
		})

		It("clamps extreme configuration", func() {
			cfg := fact.DefaultTrustConfig()
			cfg.HumanBase = 5
			cfg.AIBase = -3
			e := fact.NewTrustEngine(cfg)
			Expect(e.InitialTrust(fact.AuthorHuman, fact.SourceLocal)).To(Equal(1.0))
			Expect(e.InitialTrust(fact.AuthorAI, fact.SourceLocal)).To(Equal(0.0))
		})
	})

	Describe("ApplyDecay", func() {
		It("does not decay within the grace period", func() {
			Expect(engine.ApplyDecay(0.8, daysAgo(90))).To(Equal(0.8))
		})

		It("decays linearly after the grace period", func() {
			Expect(engine.ApplyDecay(0.8, daysAgo(100))).To(BeNumerically("~", 0.75, 1e-9))
		})

		It("floors at the decay floor", func() {
			Expect(engine.ApplyDecay(0.8, daysAgo(1000))).To(BeNumerically("~", 0.2, 1e-9))
		})
	})

	It("caps the confirmation boost at 1", func() {
		Expect(engine.ApplyConfirmationBoost(0.5)).To(BeNumerically("~", 0.6, 1e-9))
		Expect(engine.ApplyConfirmationBoost(0.95)).To(Equal(1.0))
	})

	It("floors the superseded penalty at 0", func() {
		Expect(engine.ApplySupersededPenalty(0.8)).To(BeNumerically("~", 0.5, 1e-9))
		Expect(engine.ApplySupersededPenalty(0.1)).To(Equal(0.0))
	})

	Describe("EffectiveTrust", func() {
		It("leaves a fresh active fact unchanged", func() {
			Expect(engine.EffectiveTrust(0.5, now, fact.StatusActive, fact.TypeFact, 0)).To(BeNumerically("~", 0.5, 1e-9))
		})

		It("applies status adjustments", func() {
			Expect(engine.EffectiveTrust(0.8, now, fact.StatusSuperseded, fact.TypeFact, 0)).To(BeNumerically("~", 0.5, 1e-9))
			Expect(engine.EffectiveTrust(0.8, now, fact.StatusDeprecated, fact.TypeFact, 0)).To(BeNumerically("~", 0.4, 1e-9))
			Expect(engine.EffectiveTrust(0.8, now, fact.StatusArchived, fact.TypeFact, 0)).To(BeNumerically("~", 0.24, 1e-9))
			Expect(engine.EffectiveTrust(0.8, now, fact.StatusPendingReview, fact.TypeFact, 0)).To(BeNumerically("~", 0.8, 1e-9))
		})

		It("applies operations in order", func() {
			// decay 0.8 -> 0.75, superseded -> 0.45, correction -> 0.405, two boosts -> 0.605
			got := engine.EffectiveTrust(0.8, daysAgo(100), fact.StatusSuperseded, fact.TypeCorrection, 2)
			Expect(got).To(BeNumerically("~", 0.605, 1e-9))
		})

		It("always stays within [0, 1]", func() {
			inputs := []float64{-10, -0.1, 0, 0.5, 1, 1.5, 100, math.Inf(1), math.Inf(-1), math.NaN()}
			statuses := fact.Statuses
			types := []fact.Type{fact.TypeFact, fact.TypeCorrection, fact.TypeExtension, fact.TypeWarning, fact.TypeDeprecation}
			ages := []int{0, 91, 10_000}

			for _, base := range inputs {
				for _, st := range statuses {
					for _, t := range types {
						for _, age := range ages {
							for _, confirmations := range []int{-1, 0, 3, 50} {
								got := engine.EffectiveTrust(base, daysAgo(age), st, t, confirmations)
								Expect(got).To(BeNumerically(">=", 0.0))
								Expect(got).To(BeNumerically("<=", 1.0))
							}
						}
					}
				}
			}
		})
	})

	It("recalculates a fact's trust from its state", func() {
		f := fact.New("@a", "t", "c").WithAuthor(fact.AuthorHuman, "alice", engine)
		f.CreatedAt = now
		f.Status = fact.StatusDeprecated
		f.RecalculateTrust(engine, 0)
		Expect(f.TrustScore).To(BeNumerically("~", 0.4, 1e-9))
	})
})
