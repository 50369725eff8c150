package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/meh/pkg/logger"
)

func decodeLine(buf *bytes.Buffer) map[string]any {
	var parsed map[string]any
	Expect(json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &parsed)).To(Succeed())
	return parsed
}

var _ = Describe("New", func() {
	It("writes text at info level by default", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf))
		l.Debug("hidden")
		l.Info("fact added", "id", "01J0")

		Expect(buf.String()).NotTo(ContainSubstring("hidden"))
		Expect(buf.String()).To(ContainSubstring("fact added"))
		Expect(buf.String()).To(ContainSubstring("id=01J0"))
	})

	It("enables debug records", func() {
		var buf bytes.Buffer
		logger.New(logger.WithWriter(&buf), logger.WithDebug(true)).Debug("resolving path")
		Expect(buf.String()).To(ContainSubstring("resolving path"))
	})

	It("writes JSON records", func() {
		var buf bytes.Buffer
		logger.New(logger.WithWriter(&buf), logger.WithJSON(true)).
			WithGroup("gc").Info("collected", "deleted", 3)

		parsed := decodeLine(&buf)
		Expect(parsed["msg"]).To(Equal("collected"))
		Expect(parsed["gc"]).To(HaveKeyWithValue("deleted", BeNumerically("==", 3)))
	})

	It("prefers JSON over pretty output", func() {
		var buf bytes.Buffer
		logger.New(logger.WithWriter(&buf), logger.WithPretty(true), logger.WithJSON(true)).Info("x")
		Expect(decodeLine(&buf)).To(HaveKeyWithValue("msg", "x"))
	})

	It("writes pretty output", func() {
		var buf bytes.Buffer
		logger.New(logger.WithWriter(&buf), logger.WithPretty(true)).Warn("fork in chain", "path", "@svc")
		Expect(buf.String()).To(ContainSubstring("fork in chain"))
		Expect(buf.String()).To(ContainSubstring("@svc"))
	})

	It("duplicates output across writers", func() {
		var a, b bytes.Buffer
		logger.New(logger.WithWriters(&a, &b)).Info("twice")
		Expect(a.String()).To(ContainSubstring("twice"))
		Expect(b.String()).To(ContainSubstring("twice"))
	})
})

var _ = Describe("ParseLevel", func() {
	DescribeTable("accepts known levels",
		func(in string, want slog.Level) {
			got, err := logger.ParseLevel(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("empty", "", slog.LevelInfo),
		Entry("debug", "debug", slog.LevelDebug),
		Entry("upper case", "WARN", slog.LevelWarn),
		Entry("error", "error", slog.LevelError),
	)

	It("rejects unknown and fatal levels", func() {
		for _, in := range []string{"verbose", "fatal"} {
			_, err := logger.ParseLevel(in)
			Expect(errors.Is(err, logger.ErrInvalidLevel)).To(BeTrue(), "level %q", in)
		}
	})

	It("filters records with WithLevel", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithLevel(slog.LevelWarn))
		l.Info("fact added")
		l.Warn("fact rejected")
		Expect(buf.String()).NotTo(ContainSubstring("fact added"))
		Expect(buf.String()).To(ContainSubstring("fact rejected"))
	})
})

var _ = Describe("Nop", func() {
	It("is disabled at every level", func() {
		h := logger.Nop().With("k", "v").WithGroup("g").Handler()
		Expect(h.Enabled(context.Background(), slog.LevelError)).To(BeFalse())
	})
})

var _ = Describe("Multi", func() {
	It("sends each record to every enabled logger", func() {
		var text, js bytes.Buffer
		l := logger.Multi(
			logger.New(logger.WithWriter(&text)),
			logger.New(logger.WithWriter(&js), logger.WithJSON(true), logger.WithDebug(true)),
		)

		l.Debug("only json")
		Expect(text.String()).To(BeEmpty())
		Expect(js.String()).To(ContainSubstring("only json"))
	})

	It("carries attributes and groups to children", func() {
		var buf bytes.Buffer
		l := logger.Multi(logger.Nop(), logger.New(logger.WithWriter(&buf), logger.WithJSON(true)))

		l.With("component", "api").WithGroup("req").Info("served", "status", 201)

		parsed := decodeLine(&buf)
		Expect(parsed).To(HaveKeyWithValue("component", "api"))
		Expect(parsed["req"]).To(HaveKeyWithValue("status", BeNumerically("==", 201)))
	})

	It("reports enabled when any logger is", func() {
		l := logger.Multi(logger.Nop(), logger.New(logger.WithDebug(true)))
		Expect(l.Handler().Enabled(context.Background(), slog.LevelDebug)).To(BeTrue())
	})
})
