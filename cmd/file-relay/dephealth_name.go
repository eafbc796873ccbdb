// dephealth_name.go — извлечение имени владельца пода из hostname.
// Метка name в topologymetrics должна быть стабильной между рестартами,
// поэтому случайные суффиксы Kubernetes отбрасываются.
package main

import "strings"

// parseOwnerName возвращает имя владельца пода по его hostname.
//
// Deployment: <владелец>-<хэш ReplicaSet>-<суффикс пода> — отбрасываются
// два последних сегмента. StatefulSet: <владелец>-<порядковый номер> —
// отбрасывается номер. Остальное возвращается как есть.
func parseOwnerName(hostname string) string {
	parts := strings.Split(hostname, "-")
	n := len(parts)

	if n >= 3 && isPodSuffix(parts[n-1]) && isReplicaSetHash(parts[n-2]) {
		return strings.Join(parts[:n-2], "-")
	}

	if n >= 2 && isOrdinal(parts[n-1]) {
		return strings.Join(parts[:n-1], "-")
	}

	return hostname
}

// isPodSuffix — пятисимвольный суффикс пода из строчных букв и цифр.
func isPodSuffix(s string) bool {
	if len(s) != 5 {
		return false
	}
	return isLowerAlnum(s)
}

// isReplicaSetHash — хэш ReplicaSet: 8-10 строчных букв и цифр,
// среди которых есть хотя бы одна цифра.
func isReplicaSetHash(s string) bool {
	if len(s) < 8 || len(s) > 10 {
		return false
	}
	if !isLowerAlnum(s) {
		return false
	}
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// isOrdinal — порядковый номер StatefulSet: только цифры.
func isOrdinal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isLowerAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
