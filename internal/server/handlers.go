package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"sieve/internal/analytics"
	"sieve/internal/logging"
	"sieve/internal/model"
	"sieve/internal/summary"
	"sieve/internal/triage"
)

// Scorer is the scoring and training surface the API needs.
type Scorer interface {
	ScoreBatch(ctx context.Context, articles []model.Article, examples []model.TrainingExample) []model.ScoreResult
	FullRetrain(ctx context.Context, examples []model.TrainingExample) (bool, error)
	IncrementalTrain(ctx context.Context, newExamples []model.TrainingExample, epochs int) (bool, error)
}

// LabelStore holds the labeled history.
type LabelStore interface {
	PutExample(ctx context.Context, e model.TrainingExample) (int64, error)
	LoadExamples(ctx context.Context) ([]model.TrainingExample, error)
}

type Summarizer interface {
	Enabled() bool
	Summarize(ctx context.Context, a model.Article) (summary.Summary, error)
}

// Handler serves the HTTP API.
type Handler struct {
	scorer     Scorer
	labels     LabelStore
	gate       *triage.Gate
	summarizer Summarizer
	validate   *validator.Validate
	log        *logging.Logger
	now        func() time.Time
	epochs     int
}

// NewHandler wires the API. gate and summarizer may be nil.
func NewHandler(s Scorer, labels LabelStore, gate *triage.Gate, sum Summarizer, log *logging.Logger) *Handler {
	return &Handler{
		scorer:     s,
		labels:     labels,
		gate:       gate,
		summarizer: sum,
		validate:   validator.New(),
		log:        logging.OrNop(log).With("handler", "api"),
		now:        time.Now,
	}
}

// WithDefaultEpochs sets the incremental epochs used when a label request
// does not name any.
func (h *Handler) WithDefaultEpochs(n int) *Handler {
	h.epochs = n
	return h
}

type scoreRequest struct {
	Articles []model.Article `json:"articles" validate:"required,min=1,max=500,dive"`
	Triage   bool            `json:"triage"`
}

type scoredArticle struct {
	model.ScoreResult
	Band   model.Band    `json:"band"`
	Action triage.Action `json:"action,omitempty"`
}

type appliedAction struct {
	ArticleID string        `json:"article_id"`
	Action    triage.Action `json:"action"`
}

// triageFailure is the error detail for a batch whose triage stopped
// part way: Applied lists the non-none actions already recorded.
type triageFailure struct {
	Applied   []appliedAction `json:"applied"`
	Remaining int             `json:"remaining"`
}

type labelRequest struct {
	Title       string `json:"title" validate:"required,max=1000"`
	Description string `json:"description" validate:"max=20000"`
	SourceName  string `json:"source_name" validate:"max=200"`
	Notes       string `json:"notes" validate:"max=5000"`
	Label       string `json:"label" validate:"required,oneof=approved junk"`
	Epochs      int    `json:"epochs" validate:"min=0,max=200"`
}

type summarizeRequest struct {
	Article model.Article `json:"article"`
}

func (h *Handler) Health(c *gin.Context) {
	examples, err := h.labels.LoadExamples(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusServiceUnavailable, CodeStoreUnavailable, err)
		return
	}
	approved, junk := model.CountLabels(examples)
	RespondOK(c, gin.H{"status": "ok", "approved": approved, "junk": junk, "trainable": model.Sufficient(examples)})
}

func (h *Handler) Score(c *gin.Context) {
	var req scoreRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	examples, err := h.labels.LoadExamples(ctx)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, CodeStoreError, err)
		return
	}
	results := h.scorer.ScoreBatch(ctx, req.Articles, examples)

	out := make([]scoredArticle, len(results))
	for i, r := range results {
		out[i] = scoredArticle{ScoreResult: r, Band: r.Band()}
	}
	if req.Triage && h.gate != nil {
		now := h.now()
		applied := []appliedAction{}
		for i, r := range results {
			act, err := h.gate.Apply(ctx, now, r)
			if err != nil {
				// Earlier actions stay recorded in the ledger.
				h.log.Error("triage_failed", "article_id", r.ArticleID, "applied", len(applied), "error", err)
				RespondErrorDetails(c, http.StatusInternalServerError, CodeTriageError, err,
					triageFailure{Applied: applied, Remaining: len(results) - i})
				return
			}
			out[i].Action = act
			if act != triage.ActionNone {
				applied = append(applied, appliedAction{ArticleID: r.ArticleID, Action: act})
			}
		}
	}
	RespondOK(c, gin.H{"results": out, "bands": analytics.Distribution(results)})
}

func (h *Handler) Label(c *gin.Context) {
	var req labelRequest
	if !h.bind(c, &req) {
		return
	}
	label, _ := model.ParseLabel(req.Label)
	ex := model.TrainingExample{
		Title:       req.Title,
		Description: req.Description,
		SourceName:  req.SourceName,
		Notes:       req.Notes,
		Label:       label,
	}
	ctx := c.Request.Context()
	id, err := h.labels.PutExample(ctx, ex)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, CodeStoreError, err)
		return
	}

	epochs := req.Epochs
	if epochs == 0 {
		epochs = h.epochs
	}
	body := gin.H{"id": id, "label": label.String()}
	trained, err := h.scorer.IncrementalTrain(ctx, []model.TrainingExample{ex}, epochs)
	if err != nil {
		h.log.Error("incremental_train_failed", "example_id", id, "error", err)
		body["training_error"] = err.Error()
	}
	body["trained"] = trained
	c.JSON(http.StatusCreated, body)
}

func (h *Handler) Retrain(c *gin.Context) {
	ctx := c.Request.Context()
	examples, err := h.labels.LoadExamples(ctx)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, CodeStoreError, err)
		return
	}
	trained, err := h.scorer.FullRetrain(ctx, examples)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, CodeRetrainFailed, err)
		return
	}
	RespondOK(c, gin.H{"trained": trained, "examples": len(examples)})
}

func (h *Handler) Summarize(c *gin.Context) {
	if h.summarizer == nil || !h.summarizer.Enabled() {
		RespondError(c, http.StatusServiceUnavailable, CodeSummaryDisabled, summary.ErrDisabled)
		return
	}
	var req summarizeRequest
	if !h.bind(c, &req) {
		return
	}
	s, err := h.summarizer.Summarize(c.Request.Context(), req.Article)
	switch {
	case errors.Is(err, summary.ErrUnrecognizedResponse):
		RespondError(c, http.StatusBadGateway, CodeBadUpstream, err)
	case err != nil:
		RespondError(c, http.StatusBadGateway, CodeUpstreamFailed, err)
	default:
		RespondOK(c, s)
	}
}

// bind decodes and validates the JSON body, responding 400 on failure.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeInvalidJSON, err)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, err)
		return false
	}
	return true
}
