package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/publicartatlas/artimport/internal/artist"
	"github.com/publicartatlas/artimport/internal/checkpoint"
	"github.com/publicartatlas/artimport/internal/location"
	"github.com/publicartatlas/artimport/internal/model"
	"github.com/publicartatlas/artimport/internal/photo"
	"github.com/publicartatlas/artimport/internal/resilience"
	"github.com/publicartatlas/artimport/internal/scorer"
	"github.com/publicartatlas/artimport/internal/spatial"
	"github.com/publicartatlas/artimport/pkg/ingest"
)

// WarnPolicy decides what happens to records scoring in the possible-
// duplicate band, at or above the warn threshold but below the duplicate
// threshold.
type WarnPolicy string

// Warn-band policies.
const (
	// WarnSkip marks the item skipped for manual review.
	WarnSkip WarnPolicy = "skip"
	// WarnCreate imports the record anyway and logs the near-match.
	WarnCreate WarnPolicy = "create"
)

// Confirmer asks the operator a yes/no question. The run command wires a
// terminal prompt; tests and unattended runs use a canned answer.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(prompt string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(prompt string) (bool, error) { return f(prompt) }

// Options are the per-run knobs, populated from flags and config.
type Options struct {
	InputPath string
	Offset    int
	Limit     int
	// Fresh discards any existing checkpoint for this session.
	Fresh bool
	// Yes skips the interactive resume confirmation.
	Yes bool
	// WarnPolicy handles the possible-duplicate band.
	WarnPolicy WarnPolicy
	// MergeTagsOnDuplicate pushes new tag keys onto matched existing
	// artworks. Existing values are never overwritten.
	MergeTagsOnDuplicate bool
	// RequireArtists fails an item whose artist names cannot all be
	// resolved. When false the artwork imports without the broken link.
	RequireArtists bool
	// RequirePhotos fails an item when any of its photos cannot be
	// fetched. When false the artwork imports without the failed photo.
	RequirePhotos bool
	// InterItemDelay throttles the loop to respect downstream rate limits.
	InterItemDelay time.Duration
}

// Deps are the collaborators the orchestrator drives. Enhancer may be nil to
// run without geocoding.
type Deps struct {
	Prefilter   *spatial.Prefilter
	ScorerCfg   scorer.Config
	Resolver    *artist.Resolver
	Photos      *photo.Fetcher
	Enhancer    *location.Enhancer
	Checkpoints *checkpoint.FileStore
	Writer      ingest.Client
	SubmitRetry resilience.Policy
	Confirm     Confirmer
}

// Orchestrator runs one import session, strictly sequentially, one record at
// a time, checkpointing after every item.
type Orchestrator struct {
	deps    Deps
	profile *Profile
	opts    Options
}

// New creates an Orchestrator.
func New(deps Deps, profile *Profile, opts Options) *Orchestrator {
	if opts.WarnPolicy == "" {
		opts.WarnPolicy = WarnSkip
	}
	return &Orchestrator{deps: deps, profile: profile, opts: opts}
}

// ErrAborted marks a run stopped by a fatal error or operator decision. The
// checkpoint is retained for resume.
var ErrAborted = errors.New("import run aborted")

// Run executes the import and returns the final report. The report is
// returned even when the run aborts, with Aborted set, so partial results
// are never lost; err is non-nil only for fatal conditions.
func (o *Orchestrator) Run(ctx context.Context) (*model.ImportRunReport, error) {
	report := &model.ImportRunReport{
		RunID:     uuid.NewString(),
		SessionID: checkpoint.SessionIDFor(o.opts.InputPath),
		InputPath: o.opts.InputPath,
		Source:    o.profile.Name,
		StartedAt: time.Now().UTC(),
	}
	log := zap.L().With(
		zap.String("run_id", report.RunID),
		zap.String("session", report.SessionID),
	)

	records, err := Load(o.opts.InputPath, o.profile, o.opts.Offset, o.opts.Limit)
	if err != nil {
		return o.abort(report, err), err
	}
	log.Info("input loaded",
		zap.Int("records", len(records)),
		zap.String("format", o.profile.Format),
	)

	state, err := o.openSession(report.SessionID, records)
	if err != nil {
		return o.abort(report, err), err
	}
	if state == nil {
		// Operator declined to resume and did not force a fresh start.
		err := eris.Wrap(ErrAborted, "importer: resume declined")
		return o.abort(report, err), err
	}
	if err := o.deps.Checkpoints.Save(state); err != nil {
		return o.abort(report, err), err
	}

	for i := range records {
		if state.Items[i].Status.Terminal() {
			report.Items = append(report.Items, outcomeFromCheckpoint(state.Items[i]))
			continue
		}

		// Cancellation is honored only here, between items, so the
		// checkpoint never describes a half-processed record.
		if ctxErr := ctx.Err(); ctxErr != nil {
			err := eris.Wrapf(ErrAborted, "importer: interrupted before item %d", i)
			return o.abort(report, err), err
		}

		outcome := o.processItem(ctx, i, &records[i], log)
		report.Items = append(report.Items, outcome)

		// An auth failure aborts before the item is checkpointed: it stays
		// pending so a resume with working credentials retries it.
		if outcome.Kind == model.OutcomeFailed && outcome.Category == string(resilience.CategoryAuth) {
			err := eris.Wrapf(ErrAborted, "importer: authentication failed at item %d", i)
			return o.abort(report, err), err
		}

		if fatal := o.record(state, outcome); fatal != nil {
			return o.abort(report, fatal), fatal
		}

		if o.opts.InterItemDelay > 0 && i < len(records)-1 {
			select {
			case <-time.After(o.opts.InterItemDelay):
			case <-ctx.Done():
			}
		}
	}

	o.finalize(report)
	if err := o.deps.Checkpoints.Delete(report.SessionID); err != nil {
		log.Warn("checkpoint cleanup failed", zap.Error(err))
	}
	log.Info("run complete",
		zap.Int("total", report.Counts.Total),
		zap.Int("succeeded", report.Counts.Succeeded),
		zap.Int("duplicates", report.Counts.Duplicates),
		zap.Int("failed", report.Counts.Failed),
		zap.Int("skipped", report.Counts.Skipped),
	)
	return report, nil
}

// openSession loads or creates the checkpoint for this run. A nil state with
// nil error means the operator declined to resume.
func (o *Orchestrator) openSession(sessionID string, records []model.RawImportRecord) (*model.ImportSessionState, error) {
	refs := make([]string, len(records))
	for i := range records {
		refs[i] = records[i].SourceRef()
	}

	if o.opts.Fresh {
		if err := o.deps.Checkpoints.Delete(sessionID); err != nil {
			return nil, err
		}
		return model.NewSessionState(sessionID, o.opts.InputPath, refs), nil
	}

	state, err := o.deps.Checkpoints.Load(sessionID)
	if errors.Is(err, checkpoint.ErrNoCheckpoint) {
		return model.NewSessionState(sessionID, o.opts.InputPath, refs), nil
	}
	if err != nil {
		// Corruption is fatal, never silently reset.
		return nil, err
	}
	if state.Total != len(records) {
		return nil, eris.Errorf("importer: checkpoint has %d items but input has %d; use a fresh start if the input changed",
			state.Total, len(records))
	}

	processed := state.Processed()
	zap.L().Info("existing checkpoint found",
		zap.String("session", sessionID),
		zap.Int("processed", processed),
		zap.Int("total", state.Total),
	)
	if !o.opts.Yes {
		prompt := formatResumePrompt(processed, state.Total)
		ok, err := o.deps.Confirm.Confirm(prompt)
		if err != nil {
			return nil, eris.Wrap(err, "importer: resume confirmation")
		}
		if !ok {
			return nil, nil
		}
	}
	return state, nil
}

// record checkpoints one outcome. A checkpoint write failure is fatal: losing
// resumability mid-run is worse than stopping.
func (o *Orchestrator) record(state *model.ImportSessionState, out model.ItemOutcome) error {
	status := model.ItemSucceeded
	switch out.Kind {
	case model.OutcomeFailed:
		status = model.ItemFailed
	case model.OutcomeSkipped:
		status = model.ItemSkipped
	}
	if err := state.MarkItem(out.Index, status, string(out.Kind), out.Error); err != nil {
		return err
	}
	return o.deps.Checkpoints.Save(state)
}

// processItem runs one record through the full pipeline. It never returns an
// error: every failure mode is folded into the outcome so the loop's control
// flow stays explicit.
func (o *Orchestrator) processItem(ctx context.Context, idx int, rec *model.RawImportRecord, log *zap.Logger) model.ItemOutcome {
	out := model.ItemOutcome{Index: idx, SourceRef: rec.SourceRef(), Kind: model.OutcomeCreated}
	itemLog := log.With(zap.Int("item", idx), zap.String("ref", out.SourceRef))

	enhanced := o.enhance(ctx, *rec)

	// Dedup against nearby corpus entries. A prefilter failure degrades to
	// zero candidates so corpus outages never block new data.
	candidates, err := o.deps.Prefilter.Candidates(ctx, enhanced.Record.Lat, enhanced.Record.Lon)
	if err != nil {
		itemLog.Warn("prefilter failed, treating as no candidates", zap.Error(err))
		candidates = nil
	}

	if len(candidates) > 0 {
		scored := scorer.Evaluate(&enhanced.Record, candidates, o.deps.ScorerCfg)
		best := scored[0]
		switch scorer.Decide(best.Score.Total, o.deps.ScorerCfg) {
		case scorer.DecisionDuplicate:
			return o.handleDuplicate(ctx, out, &enhanced.Record, best, itemLog)
		case scorer.DecisionPossible:
			itemLog.Warn("possible duplicate",
				zap.String("candidate", best.Candidate.ID),
				zap.Float64("score", best.Score.Total),
				zap.String("policy", string(o.opts.WarnPolicy)),
			)
			if o.opts.WarnPolicy == WarnSkip {
				out.Kind = model.OutcomeSkipped
				out.ArtworkID = best.Candidate.ID
				out.Score = &best.Score
				out.Error = "possible duplicate, review required"
				return out
			}
			out.Score = &best.Score
		}
	}

	matches, resolveErr := o.resolveArtists(ctx, &enhanced.Record, out.SourceRef)
	out.ArtistMatches = matches
	if resolveErr != nil && o.opts.RequireArtists {
		return failOutcome(out, resolveErr)
	}

	stored, failed := o.fetchPhotos(ctx, enhanced.Record.Photos)
	out.PhotosStored = len(stored)
	out.PhotosFailed = len(failed)
	if len(failed) > 0 && o.opts.RequirePhotos {
		return failOutcome(out, eris.Errorf("importer: %d of %d photos failed", len(failed), len(enhanced.Record.Photos)))
	}

	resp, err := o.submit(ctx, &enhanced, matches, stored)
	if err != nil {
		return failOutcome(out, err)
	}
	out.ArtworkID = resp.ID
	itemLog.Info("artwork created", zap.String("artwork_id", resp.ID))
	return out
}

func (o *Orchestrator) enhance(ctx context.Context, rec model.RawImportRecord) location.Enhanced {
	if o.deps.Enhancer == nil {
		return location.Enhanced{Record: rec}
	}
	return o.deps.Enhancer.Enhance(ctx, rec)
}

// handleDuplicate records a certain duplicate, optionally pushing the
// record's new tag keys onto the existing artwork. Existing values always
// win.
func (o *Orchestrator) handleDuplicate(ctx context.Context, out model.ItemOutcome, rec *model.RawImportRecord, best scorer.Scored, log *zap.Logger) model.ItemOutcome {
	out.Kind = model.OutcomeDuplicate
	out.ArtworkID = best.Candidate.ID
	out.Score = &best.Score
	log.Info("duplicate detected",
		zap.String("candidate", best.Candidate.ID),
		zap.Float64("score", best.Score.Total),
	)

	if !o.opts.MergeTagsOnDuplicate || len(rec.Tags) == 0 {
		return out
	}
	_, added := model.MergeTags(best.Candidate.Tags, rec.Tags)
	if len(added) == 0 {
		return out
	}
	err := resilience.Do(ctx, o.deps.SubmitRetry, func(ctx context.Context) error {
		_, err := o.deps.Writer.MergeTags(ctx, best.Candidate.ID, added)
		return err
	})
	if err != nil {
		// The duplicate decision stands; only the enrichment is lost.
		log.Warn("tag merge failed", zap.Error(err))
		return out
	}
	out.Kind = model.OutcomeMerged
	log.Info("tags merged", zap.Int("added", len(added)))
	return out
}

func (o *Orchestrator) resolveArtists(ctx context.Context, rec *model.RawImportRecord, ref string) ([]model.ArtistMatch, error) {
	if len(rec.Artists) == 0 || o.deps.Resolver == nil {
		return nil, nil
	}
	return o.deps.Resolver.Resolve(ctx, rec.Artists, ref)
}

func (o *Orchestrator) fetchPhotos(ctx context.Context, refs []model.PhotoRef) ([]photo.Stored, []photo.Failure) {
	if len(refs) == 0 || o.deps.Photos == nil {
		return nil, nil
	}
	return o.deps.Photos.Fetch(ctx, refs)
}

func (o *Orchestrator) submit(ctx context.Context, enhanced *location.Enhanced, matches []model.ArtistMatch, stored []photo.Stored) (*ingest.ArtworkResponse, error) {
	sub := buildSubmission(enhanced, matches, stored)
	return resilience.DoVal(ctx, o.deps.SubmitRetry, func(ctx context.Context) (*ingest.ArtworkResponse, error) {
		return o.deps.Writer.SubmitArtwork(ctx, sub)
	})
}

func buildSubmission(enhanced *location.Enhanced, matches []model.ArtistMatch, stored []photo.Stored) ingest.ArtworkSubmission {
	rec := &enhanced.Record
	sub := ingest.ArtworkSubmission{
		Title:         rec.Title,
		Description:   rec.Description,
		Lat:           rec.Lat,
		Lon:           rec.Lon,
		Material:      rec.Material,
		ArtworkType:   rec.ArtworkType,
		YearInstalled: rec.YearInstalled,
		Address:       rec.Address,
		Neighborhood:  rec.Neighborhood,
		SiteName:      rec.SiteName,
		Status:        string(rec.Status),
		Tags:          rec.Tags,
		ExternalID:    rec.ExternalID,
		Source:        rec.Source,
		RegistryID:    rec.RegistryID,
	}
	if enhanced.Location != nil {
		sub.Country = enhanced.Location.Country
		sub.State = enhanced.Location.State
		sub.City = enhanced.Location.City
	}
	for _, link := range artist.Links(matches) {
		sub.Artists = append(sub.Artists, ingest.ArtistLinkPayload{
			ArtistID: link.ArtistID,
			Role:     string(link.Role),
		})
	}
	for _, s := range stored {
		sub.Photos = append(sub.Photos, ingest.PhotoPayload{
			Hash:     s.Hash,
			MIMEType: s.MIMEType,
			ByteSize: s.ByteSize,
			Caption:  s.Caption,
			Credit:   s.Credit,
		})
	}
	return sub
}

func failOutcome(out model.ItemOutcome, err error) model.ItemOutcome {
	out.Kind = model.OutcomeFailed
	out.Category = string(resilience.Categorize(err))
	out.Error = err.Error()
	return out
}

func (o *Orchestrator) abort(report *model.ImportRunReport, err error) *model.ImportRunReport {
	report.Aborted = true
	report.AbortReason = err.Error()
	o.finalize(report)
	zap.L().Error("run aborted",
		zap.String("run_id", report.RunID),
		zap.Error(err),
	)
	return report
}

func (o *Orchestrator) finalize(report *model.ImportRunReport) {
	report.EndedAt = time.Now().UTC()
	report.Duration = report.EndedAt.Sub(report.StartedAt)
	for _, item := range report.Items {
		report.Counts.Total++
		switch item.Kind {
		case model.OutcomeCreated:
			report.Counts.Succeeded++
			if item.ArtworkID != "" {
				report.CreatedArtworkIDs = append(report.CreatedArtworkIDs, item.ArtworkID)
			}
		case model.OutcomeDuplicate, model.OutcomeMerged:
			report.Counts.Succeeded++
			report.Counts.Duplicates++
		case model.OutcomeFailed:
			report.Counts.Failed++
		case model.OutcomeSkipped:
			report.Counts.Skipped++
		}
		for _, m := range item.ArtistMatches {
			if m.CreatedID != "" {
				report.AutoCreatedArtistIDs = append(report.AutoCreatedArtistIDs, m.CreatedID)
			} else if m.MatchedID != "" {
				report.LinkedArtistIDs = append(report.LinkedArtistIDs, m.MatchedID)
			}
		}
	}
}

// outcomeFromCheckpoint reconstructs a report entry for an item already
// terminal in a resumed session. The original outcome kind is preserved.
func outcomeFromCheckpoint(it model.ItemState) model.ItemOutcome {
	kind := model.OutcomeKind(it.Outcome)
	switch kind {
	case model.OutcomeCreated, model.OutcomeDuplicate, model.OutcomeMerged,
		model.OutcomeFailed, model.OutcomeSkipped:
	default:
		// Legacy checkpoints carried only the status.
		switch it.Status {
		case model.ItemFailed:
			kind = model.OutcomeFailed
		case model.ItemSkipped:
			kind = model.OutcomeSkipped
		default:
			kind = model.OutcomeCreated
		}
	}
	return model.ItemOutcome{
		Index:     it.Index,
		SourceRef: it.SourceRef,
		Kind:      kind,
		Error:     it.Error,
	}
}

func formatResumePrompt(processed, total int) string {
	return fmt.Sprintf("%d of %d items already processed; resume", processed, total)
}
