package http

import (
	"net/http"
	"strings"

	"github.com/collinlucke/baphomet-server/internal/domain"
	"github.com/collinlucke/baphomet-server/internal/usecase"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/logger"
)

type ImageHandler struct {
	imageUsecase usecase.ImageUC
	logger       logger.Logger
}

func NewImageHandler(imageUsecase usecase.ImageUC, logger logger.Logger) *ImageHandler {
	return &ImageHandler{imageUsecase: imageUsecase, logger: logger}
}

type URLResponse struct {
	URL string `json:"url"`
}

type ProcessImageRequest struct {
	URL      string `json:"url"`
	Category string `json:"category"`
}

type ProcessImageResponse struct {
	Success  bool                 `json:"success"`
	Variants domain.VariantResult `json:"variants,omitempty"`
	Message  string               `json:"message,omitempty"`
}

type BatchRequest struct {
	Images []domain.BatchItem `json:"images"`
}

type BatchResponse struct {
	Results map[string]domain.BatchItemResult `json:"results"`
}

type MoviesRequest struct {
	Movies []domain.MovieImages `json:"movies"`
}

// getImage
//
//	@Summary		URL одного размера
//	@Description	Возвращает URL варианта. Если варианта нет, обрабатывает все размеры категории
//	@Tags			images
//	@Produce		json
//	@Param			url			query		string	true	"URL исходного изображения"
//	@Param			category	query		string	true	"poster, profile или backdrop"
//	@Param			size		query		string	false	"Размер (по умолчанию размер категории)"
//	@Success		200			{object}	URLResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		502			{object}	ErrorResponse
//	@Router			/images [get]
func (h *ImageHandler) getImage(w http.ResponseWriter, r *http.Request) {
	sourceURL, category, err := parseSourceQuery(r)
	if err != nil {
		h.logger.Warnf("%d get image: %v", http.StatusBadRequest, err)
		WriteError(w, err)
		return
	}

	link, err := h.imageUsecase.GetImage(r.Context(), usecase.NewGetImageReq(sourceURL, category, r.URL.Query().Get("size")))
	if err != nil {
		h.logger.Warnf("get image %s: %v", sourceURL, err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, URLResponse{URL: link})
}

// processImage
//
//	@Summary		Обработка всех размеров
//	@Description	Создаёт недостающие варианты изображения и возвращает URL всех размеров категории
//	@Tags			images
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ProcessImageRequest	true	"Исходное изображение"
//	@Success		200		{object}	ProcessImageResponse
//	@Failure		400		{object}	ProcessImageResponse
//	@Failure		502		{object}	ProcessImageResponse
//	@Router			/images/process [post]
func (h *ImageHandler) processImage(w http.ResponseWriter, r *http.Request) {
	var req ProcessImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeProcessError(w, err)
		return
	}

	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		h.writeProcessError(w, err)
		return
	}

	variants, err := h.imageUsecase.ProcessImage(r.Context(), usecase.NewProcessImageReq(strings.TrimSpace(req.URL), category))
	if err != nil {
		h.logger.Warnf("process image %s: %v", req.URL, err)
		h.writeProcessError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, ProcessImageResponse{Success: true, Variants: variants})
}

// В ответе processImage сообщение содержит этап и ключ, на котором обработка остановилась.
func (h *ImageHandler) writeProcessError(w http.ResponseWriter, err error) {
	code, _ := ToHTTPResponse(err)
	WriteSuccess(w, code, ProcessImageResponse{Success: false, Message: err.Error()})
}

// batchProcess
//
//	@Summary		Пакетная обработка
//	@Description	Обрабатывает изображения последовательно. Ошибка одной задачи не влияет на остальные
//	@Tags			images
//	@Accept			json
//	@Produce		json
//	@Param			request	body		BatchRequest	true	"Задачи"
//	@Success		200		{object}	BatchResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/images/batch [post]
func (h *ImageHandler) batchProcess(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if err := validateBatch(req.Images); err != nil {
		WriteError(w, err)
		return
	}

	for i := range req.Images {
		if c, err := domain.ParseCategory(string(req.Images[i].Category)); err == nil {
			req.Images[i].Category = c
		}
	}

	results := h.imageUsecase.BatchProcessImages(r.Context(), req.Images)
	WriteSuccess(w, http.StatusOK, BatchResponse{Results: results})
}

// responsiveImages
//
//	@Summary		Набор для адаптивной вёрстки
//	@Description	URL по точкам small, medium, large, xlarge, original
//	@Tags			images
//	@Produce		json
//	@Param			url			query		string	true	"URL исходного изображения"
//	@Param			category	query		string	true	"poster, profile или backdrop"
//	@Success		200			{object}	map[string]string
//	@Failure		400			{object}	ErrorResponse
//	@Failure		502			{object}	ErrorResponse
//	@Router			/images/responsive [get]
func (h *ImageHandler) responsiveImages(w http.ResponseWriter, r *http.Request) {
	sourceURL, category, err := parseSourceQuery(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	set, err := h.imageUsecase.ResponsiveImageURLs(r.Context(), usecase.NewProcessImageReq(sourceURL, category))
	if err != nil {
		h.logger.Warnf("responsive images %s: %v", sourceURL, err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, set)
}

// optimizedImage
//
//	@Summary		URL по пути TMDB
//	@Description	Возвращает URL варианта для относительного пути TMDB, при ошибке ссылку на TMDB
//	@Tags			images
//	@Produce		json
//	@Param			path		query		string	true	"Путь TMDB, например /abc.jpg"
//	@Param			category	query		string	true	"poster, profile или backdrop"
//	@Param			size		query		string	false	"Размер"
//	@Success		200			{object}	URLResponse
//	@Failure		400			{object}	ErrorResponse
//	@Router			/images/optimized [get]
func (h *ImageHandler) optimizedImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category, err := domain.ParseCategory(q.Get("category"))
	if err != nil {
		WriteError(w, err)
		return
	}

	link := h.imageUsecase.OptimizedImageURL(r.Context(), q.Get("path"), category, q.Get("size"))
	WriteSuccess(w, http.StatusOK, URLResponse{URL: link})
}

// processMovies
//
//	@Summary		Изображения фильмов
//	@Description	Обрабатывает постеры и фоны. Ключи результата: {id}_poster, {id}_backdrop
//	@Tags			images
//	@Accept			json
//	@Produce		json
//	@Param			request	body		MoviesRequest	true	"Фильмы"
//	@Success		200		{object}	BatchResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/images/movies [post]
func (h *ImageHandler) processMovies(w http.ResponseWriter, r *http.Request) {
	var req MoviesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if len(req.Movies) == 0 {
		WriteError(w, e.ErrNoImages)
		return
	}
	if len(req.Movies)*2 > maxBatchItems {
		WriteError(w, e.ErrTooManyImages)
		return
	}

	results := h.imageUsecase.ProcessMovieImages(r.Context(), req.Movies...)
	WriteSuccess(w, http.StatusOK, BatchResponse{Results: results})
}
