package service

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Транслитерация строчной кириллицы по паспортной схеме ICAO.
var cyrillicLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "i", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "ie", 'ы': "y", 'ь': "", 'э': "e", 'ю': "iu", 'я': "ia",
	'і': "i", 'ї': "i", 'є': "ie", 'ґ': "g", 'ў': "u",
}

// hashSlugLen — длина hex-суффикса запасного slug.
const hashSlugLen = 10

// Slugify строит slug из имени: кириллица транслитерируется, диакритика
// снимается, группы символов вне [a-z0-9] заменяются одним дефисом.
// Для имени из букв без латинской записи (например, иероглифы) slug
// выводится из SHA-256 имени: "n-<hex>". Имя без букв и цифр даёт "".
func Slugify(name string) string {
	lower := strings.ToLower(name)

	var b strings.Builder
	hasAlnum := false
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			hasAlnum = true
		}
		if lat, ok := cyrillicLatin[r]; ok {
			b.WriteString(lat)
			continue
		}
		b.WriteRune(r)
	}

	plain, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		b.String(),
	)
	if err != nil {
		plain = b.String()
	}

	slug := strings.Trim(nonSlugChars.ReplaceAllString(plain, "-"), "-")
	if slug == "" && hasAlnum {
		sum := sha256.Sum256([]byte(strings.TrimSpace(name)))
		slug = "n-" + hex.EncodeToString(sum[:])[:hashSlugLen]
	}
	return slug
}
