package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
)

const maxPlaceholderSide = 2000

// Placeholder serves a grey SVG of the requested size, used for fighter
// pictures. An optional ?label= is drawn in the middle.
func (h *Handlers) Placeholder(w http.ResponseWriter, r *http.Request) {
	width, errW := strconv.Atoi(r.PathValue("w"))
	height, errH := strconv.Atoi(r.PathValue("h"))
	if errW != nil || errH != nil || width < 1 || height < 1 || width > maxPlaceholderSide || height > maxPlaceholderSide {
		http.Error(w, "width and height must be integers between 1 and 2000", http.StatusBadRequest)
		return
	}

	label := r.URL.Query().Get("label")
	if label == "" {
		label = fmt.Sprintf("%d×%d", width, height)
	}
	if len([]rune(label)) > 40 {
		label = string([]rune(label)[:40])
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
		`<rect width="100%%" height="100%%" fill="#d1d5db"/>`+
		`<text x="50%%" y="50%%" dominant-baseline="middle" text-anchor="middle" font-family="sans-serif" font-size="%d" fill="#4b5563">%s</text>`+
		`</svg>`,
		width, height, width, height, fontSize(width, height), html.EscapeString(label))
}

func fontSize(width, height int) int {
	side := min(width, height)
	return max(side/8, 8)
}
