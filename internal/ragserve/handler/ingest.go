package handler

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/ragserve/internal/ragserve/biz"
	"github.com/kart-io/ragserve/internal/ragserve/metrics"
)

// Ingest 上传并入库单个文档（multipart 字段名 file）。
func (h *Handler) Ingest(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "missing file field: "+err.Error())
		return
	}

	data, err := readUpload(fileHeader)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Ingest(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		metrics.Get().RecordIngest(0, 0, err)
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	metrics.Get().RecordIngest(1, result.ChunkCount, nil)

	respondOK(c, result)
}

// IngestBatch 批量上传并入库文档（multipart 字段名 files）。
func (h *Handler) IngestBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		respondError(c, http.StatusBadRequest, "no files provided")
		return
	}

	files := make([]biz.IngestFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		data, err := readUpload(fh)
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		files = append(files, biz.IngestFile{Filename: fh.Filename, Data: data})
	}

	result := h.service.IngestBatch(c.Request.Context(), files)
	chunks := 0
	for _, r := range result.Succeeded {
		chunks += r.ChunkCount
	}
	metrics.Get().RecordIngest(len(result.Succeeded), chunks, nil)

	respondOK(c, result)
}

// readUpload 读取上传文件的内容。
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, biz.DefaultMaxFileSize+1))
}
