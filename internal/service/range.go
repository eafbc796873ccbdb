// range.go — отдача файла клиенту: превращает полученный объект и
// заголовок Range в корректный ответ 200/206/416.
package service

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	apierrors "github.com/bigkaa/filerelay/internal/api/errors"
)

// textMIME — тип для принудительного текстового режима.
const textMIME = "text/plain; charset=utf-8"

// rangePattern — единственная поддерживаемая форма заголовка Range:
// bytes=<start>-<end>, где <end> может быть опущен (до конца объекта).
// Суффиксная форма bytes=-N и перечисление диапазонов сюда не попадают
// и трактуются как отсутствие Range.
var rangePattern = regexp.MustCompile(`^bytes=(\d+)-(\d*)$`)

// byteRange — запрошенный диапазон, границы включительно.
type byteRange struct {
	start int64
	end   int64
}

// errRangeUnsatisfiable — синтаксически корректный, но невыполнимый
// диапазон: start либо end вне [0, size-1] или start > end.
var errRangeUnsatisfiable = fmt.Errorf("диапазон вне границ объекта")

// parseRange разбирает заголовок Range для объекта размером size.
// Возвращает (nil, nil), если заголовок отсутствует или не в нашем
// формате: такой Range игнорируется и отдаётся полный ответ. Граница
// проверяется жёстко, без подгонки диапазона под размер объекта.
func parseRange(header string, size int64) (*byteRange, error) {
	m := rangePattern.FindStringSubmatch(header)
	if m == nil {
		return nil, nil
	}

	// Переполнение int64 означает число корректной формы, но заведомо
	// вне границ объекта.
	start, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil, errRangeUnsatisfiable
	}
	end := size - 1
	if m[2] != "" {
		end, err = strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return nil, errRangeUnsatisfiable
		}
	}

	if start > end || start >= size || end >= size {
		return nil, errRangeUnsatisfiable
	}
	return &byteRange{start: start, end: end}, nil
}

// Serve отдаёт файл клиенту.
//
// Состояния одного запроса:
// Resolving → Found → {Whole, Partial, NotSatisfiable} → Sent,
// либо Resolving → Missing → Sent(404).
//
// Правила:
//   - текстовый режим (?text=true или расширение html/htm) отключает
//     обработку Range и подменяет Content-Type на text/plain;
//   - некорректный синтаксис Range игнорируется, отдаётся полный ответ;
//   - выполнимый диапазон → 206 с Content-Range и точным срезом байт;
//   - невыполнимый → 416 с Content-Range: bytes */<size> без тела;
//   - тело больше FR_CHUNK_SIZE отдаётся кусками с ожиданием отправки
//     каждого куска.
//
// HEAD обслуживается по одним метаданным: статусы и заголовки те же,
// тело не читается из бэкенда и не пишется.
func (s *DownloadService) Serve(w http.ResponseWriter, r *http.Request, id string) *DownloadError {
	if r.Method == http.MethodHead {
		info, derr := s.Info(r.Context(), id)
		if derr != nil {
			return derr
		}
		s.respond(w, r, info, nil)
		return nil
	}

	data, info, derr := s.Fetch(r.Context(), id)
	if derr != nil {
		return derr
	}
	s.respond(w, r, info, data)
	return nil
}

// respond пишет ответ состояния Found: 200, 206 или 416.
// data == nil означает HEAD.
func (s *DownloadService) respond(w http.ResponseWriter, r *http.Request, info *FileInfo, data []byte) {
	size := info.Size
	head := data == nil
	if !head {
		size = int64(len(data))
	}

	// Загруженный HTML никогда не отдаётся исполняемым типом, иначе
	// relay превращается в хостинг скриптов в собственном origin.
	forceText := r.URL.Query().Get("text") == "true" ||
		info.Extension == "html" || info.Extension == "htm"

	contentType := info.MIME
	if forceText {
		contentType = textMIME
	}

	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Accept-Ranges", "bytes")
	h.Set("Cache-Control", "public, max-age=31536000, immutable")
	h.Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", info.Identifier))
	if info.Fingerprint != "" {
		h.Set("ETag", fmt.Sprintf("%q", info.Fingerprint))
	}

	// Range обрабатывается только вне текстового режима
	if !forceText {
		rng, err := parseRange(r.Header.Get("Range"), size)
		if err != nil {
			apierrors.RangeNotSatisfiable(w, size)
			return
		}
		if rng != nil {
			h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.start, rng.end, size))
			h.Set("Content-Length", strconv.FormatInt(rng.end-rng.start+1, 10))
			w.WriteHeader(http.StatusPartialContent)
			if !head {
				s.writeBody(w, r, data[rng.start:rng.end+1], false)
			}
			return
		}
	}

	h.Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	if !head {
		s.writeBody(w, r, data, true)
	}
}

// writeBody пишет тело ответа. Полное тело больше FR_CHUNK_SIZE
// отдаётся кусками: следующий кусок не пишется, пока транспорт не
// подтвердил отправку предыдущего. Ошибка записи после отправленных
// заголовков терминальна: соединение обрывается без повторов.
func (s *DownloadService) writeBody(w http.ResponseWriter, r *http.Request, data []byte, chunked bool) {
	if !chunked || int64(len(data)) <= s.cfg.ChunkSize {
		if _, err := w.Write(data); err != nil {
			s.logAborted(r, err)
		}
		return
	}

	// Flush через ResponseController проходит сквозь обёртки
	// ResponseWriter, реализующие Unwrap.
	rc := http.NewResponseController(w)
	chunk := s.cfg.ChunkSize
	for off := int64(0); off < int64(len(data)); off += chunk {
		end := off + chunk
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		if _, err := w.Write(data[off:end]); err != nil {
			s.logAborted(r, err)
			return
		}
		if err := rc.Flush(); err != nil {
			s.logAborted(r, err)
			return
		}
	}
}

// logAborted отмечает обрыв соединения при отдаче тела.
func (s *DownloadService) logAborted(r *http.Request, err error) {
	s.logger.Warn("Отдача файла прервана",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
}
