// Пакет filetype — определение типа содержимого и единая таблица
// расширение⇄MIME.
//
// Таблица статическая и единственная: её используют и путь загрузки
// (определение типа буфера), и путь отдачи (MIME по расширению
// идентификатора). Так исключается расхождение решений о типе между
// загрузкой и скачиванием одного и того же расширения.
//
// Порядок определения типа при загрузке:
//  1. сигнатура содержимого (http.DetectContentType по первым 512 байтам)
//  2. расширение из имени файла
//  3. заглушка application/octet-stream / bin
//
// Текстовые вердикты сниффера (text/plain) считаются неубедительными:
// они ловят любой печатаемый буфер и не должны перебивать расширение
// из имени файла.
package filetype

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	// DefaultMIME — MIME-тип заглушка.
	DefaultMIME = "application/octet-stream"

	// DefaultExt — расширение-заглушка.
	DefaultExt = "bin"

	// sniffLen — столько байт читает сниффер сигнатур.
	sniffLen = 512
)

// Detected — результат определения типа загружаемого буфера.
type Detected struct {
	// MIME — определённый MIME-тип.
	MIME string
	// Ext — каноническое расширение (без точки, нижний регистр).
	Ext string
	// Sure — тип определён по сигнатуре или известному расширению,
	// а не подставлен заглушкой.
	Sure bool
}

// Category — группа расширений для информационного API.
// Таблица информационная, не allow-list: загрузка расширений вне
// таблицы не блокируется.
type Category struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}

// categories — статическая таблица поддерживаемых типов, версия 1.
// Порядок групп фиксирован для стабильного вывода API.
var categories = []Category{
	{Name: "image", Extensions: []string{"jpg", "jpeg", "png", "gif", "webp", "svg", "ico", "bmp", "avif"}},
	{Name: "video", Extensions: []string{"mp4", "webm", "mov", "avi", "mkv", "m4v"}},
	{Name: "audio", Extensions: []string{"mp3", "wav", "ogg", "flac", "m4a", "aac", "mid", "aiff"}},
	{Name: "document", Extensions: []string{"pdf", "txt", "md", "csv", "rtf", "doc", "docx", "xls", "xlsx", "ppt", "pptx"}},
	{Name: "archive", Extensions: []string{"zip", "tar", "gz", "bz2", "xz", "rar", "7z"}},
	{Name: "code", Extensions: []string{"json", "xml", "yaml", "yml", "js", "css", "html", "htm", "go", "py"}},
	{Name: "font", Extensions: []string{"ttf", "otf", "woff", "woff2"}},
	{Name: "binary", Extensions: []string{"bin", "wasm", "exe"}},
}

// mimeByExt — расширение → MIME. Единственный источник решений о типе
// на пути отдачи.
var mimeByExt = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"ico":  "image/x-icon",
	"bmp":  "image/bmp",
	"avif": "image/avif",

	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mov":  "video/quicktime",
	"avi":  "video/avi",
	"mkv":  "video/x-matroska",
	"m4v":  "video/x-m4v",

	"mp3":  "audio/mpeg",
	"wav":  "audio/wave",
	"ogg":  "application/ogg",
	"flac": "audio/flac",
	"m4a":  "audio/mp4",
	"aac":  "audio/aac",
	"mid":  "audio/midi",
	"aiff": "audio/aiff",
	"snd":  "audio/basic",

	"pdf":  "application/pdf",
	"ps":   "application/postscript",
	"txt":  "text/plain; charset=utf-8",
	"md":   "text/markdown; charset=utf-8",
	"csv":  "text/csv; charset=utf-8",
	"rtf":  "application/rtf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",

	"zip": "application/zip",
	"tar": "application/x-tar",
	"gz":  "application/x-gzip",
	"bz2": "application/x-bzip2",
	"xz":  "application/x-xz",
	"rar": "application/x-rar-compressed",
	"7z":  "application/x-7z-compressed",

	"json": "application/json",
	"xml":  "text/xml; charset=utf-8",
	"yaml": "application/yaml",
	"yml":  "application/yaml",
	"js":   "text/javascript; charset=utf-8",
	"css":  "text/css; charset=utf-8",
	"html": "text/html; charset=utf-8",
	"htm":  "text/html; charset=utf-8",
	"go":   "text/x-go; charset=utf-8",
	"py":   "text/x-python; charset=utf-8",

	"ttf":   "font/ttf",
	"otf":   "font/otf",
	"woff":  "font/woff",
	"woff2": "font/woff2",

	"bin":  DefaultMIME,
	"wasm": "application/wasm",
	"exe":  "application/octet-stream",
}

// extBySniffedMIME — каноническое расширение для сигнатурных вердиктов
// http.DetectContentType. Ключи — MIME без параметров.
var extBySniffedMIME = map[string]string{
	"text/html":                    "html",
	"text/xml":                     "xml",
	"application/pdf":              "pdf",
	"application/postscript":       "ps",
	"audio/aiff":                   "aiff",
	"audio/basic":                  "snd",
	"audio/midi":                   "mid",
	"audio/mpeg":                   "mp3",
	"audio/wave":                   "wav",
	"application/ogg":              "ogg",
	"video/avi":                    "avi",
	"video/mp4":                    "mp4",
	"video/webm":                   "webm",
	"image/bmp":                    "bmp",
	"image/gif":                    "gif",
	"image/jpeg":                   "jpg",
	"image/png":                    "png",
	"image/webp":                   "webp",
	"image/x-icon":                 "ico",
	"font/ttf":                     "ttf",
	"font/otf":                     "otf",
	"font/woff":                    "woff",
	"font/woff2":                   "woff2",
	"application/wasm":             "wasm",
	"application/x-gzip":           "gz",
	"application/x-rar-compressed": "rar",
	"application/zip":              "zip",
}

// Detect определяет тип буфера по содержимому и имени файла.
// Ошибок не возвращает: нераспознанный буфер получает заглушку
// octet-stream/bin с Sure=false.
func Detect(buf []byte, originalFilename string) Detected {
	head := buf
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	sniffed := http.DetectContentType(head)

	// 1. Убедительная сигнатура
	if ext, ok := extBySniffedMIME[stripParams(sniffed)]; ok {
		return Detected{MIME: mimeByExt[ext], Ext: ext, Sure: true}
	}

	// 2. Расширение из имени файла
	if ext := normalizeExt(filepath.Ext(originalFilename)); ext != "" {
		if m, ok := mimeByExt[ext]; ok {
			return Detected{MIME: m, Ext: ext, Sure: true}
		}
		if m := mime.TypeByExtension("." + ext); m != "" {
			return Detected{MIME: m, Ext: ext, Sure: true}
		}
		return Detected{MIME: DefaultMIME, Ext: ext, Sure: false}
	}

	// 3. Заглушка
	return Detected{MIME: DefaultMIME, Ext: DefaultExt, Sure: false}
}

// MIMEForExt возвращает MIME-тип для расширения идентификатора.
// Сначала статическая таблица, затем системная база mime, затем заглушка.
func MIMEForExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if m, ok := mimeByExt[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension("." + ext); m != "" {
		return m
	}
	return DefaultMIME
}

// Categories возвращает копию таблицы поддерживаемых типов.
func Categories() []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		exts := make([]string, len(c.Extensions))
		copy(exts, c.Extensions)
		out[i] = Category{Name: c.Name, Extensions: exts}
	}
	return out
}

// stripParams отбрасывает параметры MIME-типа (charset и т.п.).
func stripParams(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i != -1 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(mimeType)
}

// normalizeExt — нижний регистр, без ведущей точки; только буквы/цифры
// длиной до 10 символов, иначе пустая строка.
func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" || len(ext) > 10 {
		return ""
	}
	for _, c := range ext {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
