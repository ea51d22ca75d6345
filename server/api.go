package server

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/Mulet-J/desktopeye/bootstrap"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/logger"
	"github.com/Mulet-J/desktopeye/ocr"
	"github.com/Mulet-J/desktopeye/server/endpoint"
	"github.com/Mulet-J/desktopeye/validation"
)

// maxTextRunes bounds text sent to classify, translate and speak.
const maxTextRunes = 20000

// API serves the capabilities of an App over HTTP.
type API struct {
	app *bootstrap.App
	log *logger.Logger
}

// RegisterAPI mounts the system endpoints and the /api routes on engine.
func RegisterAPI(engine *gin.Engine, app *bootstrap.App) *API {
	a := &API{app: app, log: app.Logger.WithComponent("api")}

	engine.GET("/health", endpoint.Health(app.Name, app.Components.HealthAll))
	engine.GET("/ready", endpoint.Readiness(app.Name, app.Components.HealthAll))
	engine.GET("/info", endpoint.Info(app.Name))

	api := engine.Group("/api")
	api.GET("/status", a.status)
	api.GET("/backends", a.backends)
	api.PUT("/backends/:capability", a.switchBackend)
	api.POST("/backends/:capability/load", a.loadBackend)
	api.POST("/ocr", a.extractText)
	api.POST("/classify", a.classify)
	api.POST("/translate", a.translate)
	api.POST("/speak", a.speak)
	api.POST("/pipeline", a.pipeline)
	return a
}

func (a *API) status(c *gin.Context) {
	RespondOK(c, a.app.Summary(c.Request.Context()))
}

func (a *API) backends(c *gin.Context) {
	RespondOK(c, a.app.Summary(c.Request.Context()).Capabilities)
}

type switchRequest struct {
	Kind string `json:"kind" validate:"required"`
	Load bool   `json:"load"`
}

func (a *API) capability(c *gin.Context) (bootstrap.Capability, bool) {
	name := c.Param("capability")
	cp := a.app.Capability(name)
	if cp == nil {
		RespondWithError(c, errors.New(errors.ErrCodeNotRegistered, "Unknown capability "+name+".", http.StatusNotFound).
			WithDetail("capability", name))
		return nil, false
	}
	return cp, true
}

func (a *API) switchBackend(c *gin.Context) {
	cp, ok := a.capability(c)
	if !ok {
		return
	}
	var req switchRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := cp.SwitchToName(c.Request.Context(), req.Kind, req.Load); err != nil {
		RespondWithError(c, err)
		return
	}
	a.log.WithContext(c.Request.Context()).Info("Backend switched via API", map[string]interface{}{
		logger.FieldCapability: cp.Capability(),
		logger.FieldKind:       cp.KindName(),
	})
	RespondOK(c, capabilityStatus(c, cp))
}

func (a *API) loadBackend(c *gin.Context) {
	cp, ok := a.capability(c)
	if !ok {
		return
	}
	res := a.app.Preload(c.Request.Context(), cp.Capability())[0]
	if res.Err != nil {
		RespondWithError(c, res.Err)
		return
	}
	RespondOK(c, res)
}

func capabilityStatus(c *gin.Context, cp bootstrap.Capability) bootstrap.CapabilityStatus {
	return bootstrap.CapabilityStatus{
		Capability: cp.Capability(),
		Kind:       cp.KindName(),
		Kinds:      cp.KindNames(),
		Active:     cp.HasInstance(),
		LoadState:  cp.LoadState().String(),
		Health:     cp.Health(c.Request.Context()),
	}
}

// extractText takes a multipart form with an "image" file and optional
// "languages" (joined with + or ,) and "preprocess" fields.
func (a *API) extractText(c *gin.Context) {
	res, ok := a.runOCR(c)
	if !ok {
		return
	}
	RespondOK(c, res)
}

func (a *API) runOCR(c *gin.Context) (*ocr.Result, bool) {
	fh, err := c.FormFile("image")
	if stderrors.Is(err, http.ErrMissingFile) {
		RespondWithError(c, errors.InvalidInput("image", "an image file is required"))
		return nil, false
	}
	if err != nil {
		RespondWithError(c, uploadError(err))
		return nil, false
	}
	f, err := fh.Open()
	if err != nil {
		RespondWithError(c, errors.InvalidInput("image", err.Error()))
		return nil, false
	}
	defer f.Close()

	img, err := ocr.Decode(f)
	if err != nil {
		RespondWithError(c, err)
		return nil, false
	}

	preprocess := false
	if v := c.PostForm("preprocess"); v != "" {
		if preprocess, err = strconv.ParseBool(v); err != nil {
			RespondWithError(c, errors.InvalidInput("preprocess", "must be a boolean"))
			return nil, false
		}
	}

	res, err := a.app.OCR.ExtractText(c.Request.Context(), img, splitLanguages(c.PostForm("languages")), preprocess)
	if err != nil {
		RespondWithError(c, err)
		return nil, false
	}
	return res, true
}

type textRequest struct {
	Text string `json:"text" validate:"required"`
}

func (a *API) classify(c *gin.Context) {
	var req textRequest
	if !bindJSON(c, &req) || !checkLength(c, req.Text) {
		return
	}
	res, err := a.app.Classify.ClassifyText(c.Request.Context(), req.Text)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, res)
}

type translateRequest struct {
	Text   string `json:"text" validate:"required"`
	Source string `json:"source"`
	Target string `json:"target" validate:"required"`
}

// TranslateResponse is the body of a successful translation.
type TranslateResponse struct {
	Text        string       `json:"text"`
	Translation string       `json:"translation"`
	Source      language.Tag `json:"source"`
	Target      language.Tag `json:"target"`
	Detected    bool         `json:"detected"`
	Backend     string       `json:"backend"`
}

// translate detects the source language first when none is given.
func (a *API) translate(c *gin.Context) {
	var req translateRequest
	if !bindJSON(c, &req) || !checkLength(c, req.Text) {
		return
	}
	target, ok := parseTag(c, "target", req.Target)
	if !ok {
		return
	}
	source, ok := parseTag(c, "source", req.Source)
	if !ok {
		return
	}
	resp, err := a.translateText(c, req.Text, source, target)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, resp)
}

func (a *API) translateText(c *gin.Context, text string, source, target language.Tag) (*TranslateResponse, error) {
	ctx := c.Request.Context()
	resp := &TranslateResponse{Text: text, Source: source, Target: target}
	if source == language.Und {
		if res, err := a.app.Classify.ClassifyText(ctx, text); err == nil && res.Language != language.Und {
			resp.Source, resp.Detected = res.Language, true
		} else if err != nil {
			a.log.WithContext(ctx).Debug("Source detection failed", logger.ErrorFields("classify", err))
		}
	}
	out, err := a.app.Translate.Translate(ctx, text, resp.Source, target)
	if err != nil {
		return nil, err
	}
	resp.Translation = out
	resp.Backend = a.app.Translate.KindName()
	return resp, nil
}

type speakRequest struct {
	Text  string `json:"text" validate:"required"`
	Voice string `json:"voice"`
}

// speak answers with the WAV clip itself.
func (a *API) speak(c *gin.Context) {
	var req speakRequest
	if !bindJSON(c, &req) || !checkLength(c, req.Text) {
		return
	}
	audio, err := a.app.TTS.Synthesize(c.Request.Context(), req.Text, req.Voice)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	c.Header("X-Audio-Voice", audio.Voice)
	c.Header("X-Audio-Backend", audio.Backend)
	c.Header("X-Audio-Duration-Ms", strconv.FormatInt(audio.Duration.Milliseconds(), 10))
	c.Data(http.StatusOK, "audio/wav", audio.Data)
}

// PipelineResponse is the body of a capture run: text read from the image,
// its language and, when a target was given, its translation.
type PipelineResponse struct {
	OCR         *ocr.Result        `json:"ocr"`
	Language    language.Tag       `json:"language"`
	Translation *TranslateResponse `json:"translation,omitempty"`
	Duration    time.Duration      `json:"duration"`
}

// pipeline runs OCR, detection and translation on one uploaded image. The
// form takes the OCR fields plus an optional "target".
func (a *API) pipeline(c *gin.Context) {
	start := time.Now()
	res, ok := a.runOCR(c)
	if !ok {
		return
	}
	target, ok := parseTag(c, "target", c.PostForm("target"))
	if !ok {
		return
	}
	resp := PipelineResponse{OCR: res, Language: language.Und}
	if strings.TrimSpace(res.Text) == "" {
		resp.Duration = time.Since(start)
		RespondOK(c, resp)
		return
	}

	if cls, err := a.app.Classify.ClassifyText(c.Request.Context(), res.Text); err == nil {
		resp.Language = cls.Language
	} else {
		a.log.WithContext(c.Request.Context()).Debug("Language detection failed", logger.ErrorFields("classify", err))
	}
	if target != language.Und {
		tr, err := a.translateText(c, res.Text, resp.Language, target)
		if err != nil {
			RespondWithError(c, err)
			return
		}
		resp.Translation = tr
	}
	resp.Duration = time.Since(start)
	RespondOK(c, resp)
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		RespondWithError(c, uploadError(err))
		return false
	}
	if err := validation.Validate(v); err != nil {
		RespondWithError(c, err)
		return false
	}
	return true
}

func checkLength(c *gin.Context, text string) bool {
	if appErr := validation.New().MaxRunes("text", text, maxTextRunes).Validate(); appErr != nil {
		RespondWithError(c, appErr)
		return false
	}
	return true
}

func parseTag(c *gin.Context, field, s string) (language.Tag, bool) {
	if strings.TrimSpace(s) == "" {
		return language.Und, true
	}
	tag, err := language.Parse(s)
	if err != nil {
		RespondWithError(c, errors.InvalidInput(field, "unknown language "+s))
		return language.Und, false
	}
	return tag, true
}

// uploadError maps body read failures, including the size limit.
func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.New(errors.ErrCodeInvalidInput, "Request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes.",
			http.StatusRequestEntityTooLarge)
	}
	return errors.InvalidInput("body", err.Error())
}

func splitLanguages(s string) []string {
	if s == "" {
		return nil
	}
	return strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' || r == ' ' })
}
