package classification

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"log/slog"

	"tome/internal/catalog"
	"tome/internal/config"
	"tome/internal/extraction"
	"tome/internal/logging"
	"tome/internal/services"
	"tome/internal/stage"
	"tome/internal/textutil"
)

// reviewConfidence is the relative confidence floor below which a
// classification is recorded but the document is flagged for manual review.
// With five profiles a uniform match scores 0.2, so 0.3 demands a clear
// winner without being strict about vocabulary overlap.
const reviewConfidence = 0.30

// Result is the outcome of classifying one text.
type Result struct {
	Class      string
	Confidence float64
	Scores     map[string]float64
}

type profile struct {
	name        string
	fingerprint *textutil.Fingerprint
}

// Classifier implements the classify stage.
type Classifier struct {
	cfg      *config.Config
	store    *catalog.Store
	logger   *slog.Logger
	profiles []profile
	idf      map[string]float64
}

// New constructs the classification stage handler. Profile fingerprints and
// their IDF weights are computed once here.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Classifier {
	corpus := textutil.NewCorpus()
	profiles := make([]profile, 0, len(profileSeeds))
	for name, seed := range profileSeeds {
		fp := textutil.NewFingerprint(seed)
		if fp == nil {
			continue
		}
		corpus.Add(fp)
		profiles = append(profiles, profile{name: name, fingerprint: fp})
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].name < profiles[j].name })

	idf := corpus.IDF()
	for i := range profiles {
		profiles[i].fingerprint = profiles[i].fingerprint.WithIDF(idf)
	}
	return &Classifier{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "classification"),
		profiles: profiles,
		idf:      idf,
	}
}

// Enabled reports whether classification runs. Defaults on.
func (c *Classifier) Enabled() bool {
	return c.cfg.StageEnabled("classify", true)
}

// Prepare verifies the text artifact from the extract stage is present.
func (c *Classifier) Prepare(ctx context.Context, doc *catalog.Document) error {
	dir, err := stage.ArtifactDir(doc)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, extraction.TextArtifact)); err != nil {
		return services.Wrap(
			services.ErrNotFound, "classification", "validate inputs",
			fmt.Sprintf("Text artifact %s missing; the extract stage must run before classification", extraction.TextArtifact), err)
	}
	return nil
}

// Execute classifies the extracted text and records class and confidence in
// the catalog. Classification never fails on poor matches; it flags the
// document for review so a human decides.
func (c *Classifier) Execute(ctx context.Context, doc *catalog.Document) error {
	logger := logging.WithContext(ctx, c.logger)

	text, err := stage.ReadArtifact(doc, extraction.TextArtifact)
	if err != nil {
		return err
	}
	result := c.Classify(string(text))

	doc.DocClass = result.Class
	doc.ClassConfidence = result.Confidence
	if err := c.store.SetClassification(ctx, doc.ID, result.Class, result.Confidence); err != nil {
		return services.Wrap(
			services.ErrTransient, "classification", "record class",
			"Failed persisting classification to the catalog", err)
	}

	if result.Class == ClassUnknown || result.Confidence < reviewConfidence {
		reason := fmt.Sprintf("classification uncertain: best match %q at confidence %.2f", result.Class, result.Confidence)
		if result.Class == ClassUnknown {
			reason = "document text matched no class profile"
		}
		doc.NeedsReview = true
		doc.ReviewReason = reason
		if err := c.store.FlagForReview(ctx, doc.ID, reason); err != nil {
			return services.Wrap(
				services.ErrTransient, "classification", "flag review",
				"Failed flagging the document for review", err)
		}
		logger.Warn("classification needs review",
			logging.String("doc_class", result.Class),
			logging.Float64("confidence", result.Confidence),
		)
		return nil
	}

	logger.Info("classified document",
		logging.String("doc_class", result.Class),
		logging.Float64("confidence", result.Confidence),
	)
	return nil
}

// Classify scores text against every profile. Confidence is the winning
// score's share of the score mass, so document length cancels out.
func (c *Classifier) Classify(text string) Result {
	result := Result{Class: ClassUnknown, Scores: make(map[string]float64, len(c.profiles))}

	fp := textutil.NewFingerprint(text).WithIDF(c.idf)
	if fp == nil {
		return result
	}

	var best, sum float64
	for _, p := range c.profiles {
		score := textutil.CosineSimilarity(fp, p.fingerprint)
		result.Scores[p.name] = score
		sum += score
		if score > best {
			best = score
			result.Class = p.name
		}
	}
	if best == 0 || sum == 0 {
		result.Class = ClassUnknown
		return result
	}
	result.Confidence = best / sum
	return result
}

// Classes returns the built-in class names in sorted order.
func (c *Classifier) Classes() []string {
	names := make([]string, 0, len(c.profiles))
	for _, p := range c.profiles {
		names = append(names, p.name)
	}
	return names
}

// HealthCheck reports readiness. Classification is pure computation over
// built-in profiles.
func (c *Classifier) HealthCheck(ctx context.Context) stage.Health {
	const name = "classification"
	if c.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if len(c.profiles) == 0 {
		return stage.Unhealthy(name, "no class profiles available")
	}
	return stage.Healthy(name)
}
