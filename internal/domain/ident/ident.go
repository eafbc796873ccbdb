// Пакет ident — идентификаторы блобов File Relay.
//
// Формат идентификатора фиксированный:
//
//	J-<8 hex-символов контент-хэша><4 base36-символа временной метки>.<ext>
//
//   - хэш: первые 8 hex-символов SHA-256 содержимого
//   - временная метка: UnixMilli mod 36^4 в base36, с ведущими нулями
//   - расширение: 1–10 строчных букв/цифр, по умолчанию bin
//
// Идентификатор неизменяем после выдачи и одновременно является ключом
// хранения: files/<идентификатор>. Проверка формата через Valid —
// единственная защита от path traversal, поэтому каждый потребитель
// обязан вызвать её до обращения к хранилищу.
//
// Дедупликации нет: повторная загрузка тех же байтов в другой момент
// времени даёт новый идентификатор (отличается сегментом метки).
package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// Prefix — неизменный префикс идентификатора.
	Prefix = "J-"

	// Namespace — пространство ключей блоб-хранилища.
	Namespace = "files/"

	// GenericExt — расширение-заглушка для нераспознанных файлов.
	GenericExt = "bin"

	// tsLen — длина base36-сегмента временной метки.
	tsLen = 4

	// tsModulo — 36^4, диапазон значений временной метки.
	tsModulo = 36 * 36 * 36 * 36
)

// pattern — полная форма идентификатора. Hex-сегмент регистронезависим,
// метка и расширение — только нижний регистр.
var pattern = regexp.MustCompile(`^J-[0-9a-fA-F]{8}[0-9a-z]{4}\.[a-z0-9]{1,10}$`)

// extPattern — допустимое расширение после нормализации.
var extPattern = regexp.MustCompile(`^[a-z0-9]{1,10}$`)

// Generate формирует идентификатор для содержимого content.
// Хэш считается от итогового буфера как есть, без нормализации.
//
// Расширение выбирается по приоритету:
//  1. declaredExt, если непустое и не generic-заглушка bin
//  2. расширение из originalFilename
//  3. bin
func Generate(content []byte, declaredExt, originalFilename string) string {
	sum := sha256.Sum256(content)
	return Prefix + hex.EncodeToString(sum[:4]) + timestampSegment() + "." +
		ResolveExt(declaredExt, originalFilename)
}

// ResolveExt выбирает сегмент расширения по приоритету Generate.
// Кандидат, не проходящий нормализацию (пустой, длиннее 10 символов,
// с недопустимыми символами), отбрасывается в пользу следующего.
func ResolveExt(declaredExt, originalFilename string) string {
	if ext := normalizeExt(declaredExt); ext != "" && ext != GenericExt {
		return ext
	}
	if ext := normalizeExt(filepath.Ext(originalFilename)); ext != "" {
		return ext
	}
	return GenericExt
}

// Valid сообщает, соответствует ли строка полной форме идентификатора.
// Разделители пути (/, \) и точки вне расширения формат не проходят,
// поэтому принятый идентификатор не может вывести ключ за пределы
// пространства files/.
func Valid(id string) bool {
	return pattern.MatchString(id)
}

// StorageKey возвращает ключ хранения идентификатора.
// Вызывающий обязан предварительно проверить строку через Valid.
func StorageKey(id string) string {
	return Namespace + id
}

// Ext возвращает сегмент расширения идентификатора (без точки).
// Для строк, не проходящих Valid, возвращает пустую строку.
func Ext(id string) string {
	if !Valid(id) {
		return ""
	}
	return id[strings.LastIndexByte(id, '.')+1:]
}

// timestampSegment кодирует младшие разряды текущего времени в base36.
// Две генерации в одну миллисекунду дают одинаковый сегмент — различение
// одновременных загрузок одинакового содержимого не гарантируется.
func timestampSegment() string {
	seg := strconv.FormatInt(time.Now().UnixMilli()%tsModulo, 36)
	if len(seg) < tsLen {
		seg = strings.Repeat("0", tsLen-len(seg)) + seg
	}
	return seg
}

// normalizeExt приводит кандидата к форме сегмента расширения: нижний
// регистр, без ведущей точки. Недопустимый кандидат — пустая строка.
func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}
