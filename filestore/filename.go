package filestore

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"strconv"
	"strings"
	"time"
)

const maxBaseLen = 20

var (
	now        = time.Now
	randSource io.Reader = rand.Reader
)

// GenerateStoredName builds a collision-resistant, filesystem-safe name from a client filename:
// <sanitized base, max 20 chars>-<unix millis>-<16 hex chars><lower-cased extension>.
// Only the last path element of original is considered.
func GenerateStoredName(original string) string {
	base := original
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}

	ext := ""
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		ext = sanitizeExt(base[i:])
		base = base[:i]
	}

	var b strings.Builder
	for _, r := range base {
		if isAlnum(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
		if b.Len() == maxBaseLen {
			break
		}
	}
	name := b.String()
	if name == "" {
		name = "file"
	}

	return name + "-" + strconv.FormatInt(now().UnixMilli(), 10) + "-" + randomHex(8) + ext
}

// sanitizeExt lower-cases ext and drops it entirely if anything but [a-z0-9] follows the dot.
func sanitizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if len(ext) < 2 {
		return ""
	}
	for _, r := range ext[1:] {
		if !isAlnum(r) {
			return ""
		}
	}
	return ext
}

func isAlnum(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := io.ReadFull(randSource, buf); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
