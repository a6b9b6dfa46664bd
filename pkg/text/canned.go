package text

import (
	"context"
	"fmt"
	"strings"

	"github.com/Juanisegura2025/vocaria-widget/pkg/core/types"
)

// Canned replies from a fixed local response set, rotating
// deterministically by visitor turn. It never fails and never blocks, so
// the widget stays usable when no backend is reachable.
type Canned struct {
	language string
}

// NewCanned creates a canned provider. Supported languages: "es"
// (default) and "en"; anything else falls back to Spanish.
func NewCanned(language string) *Canned {
	language = strings.ToLower(strings.TrimSpace(language))
	if language != "en" {
		language = "es"
	}
	return &Canned{language: language}
}

var cannedES = []string{
	"¡Gracias por tu interés en esta propiedad! ¿Qué te gustaría saber?",
	"El precio y las condiciones dependen de la operación. ¿Querés que un asesor te contacte con los detalles?",
	"Puedo contarte sobre los ambientes, las medidas o la zona. ¿Por dónde empezamos?",
	"Si querés coordinar una visita, dejame tu contacto y te escribimos a la brevedad.",
}

var cannedEN = []string{
	"Thanks for your interest in this property! What would you like to know?",
	"The price and terms depend on the operation. Want an agent to contact you with the details?",
	"I can tell you about the rooms, the measurements or the neighborhood. Where should we start?",
	"If you'd like to schedule a visit, leave your contact details and we'll reach out shortly.",
}

var cannedRoomES = "Estás viendo %s (%.0f m²). ¿Qué más te gustaría saber?"
var cannedRoomEN = "You're looking at %s (%.0f sqm). What else would you like to know?"

// Reply returns the next canned response. When a room with a known area
// is active, every other reply references it.
func (c *Canned) Reply(_ context.Context, transcript []types.Message, room *types.RoomContext) (string, error) {
	turn := visitorTurns(transcript)
	if turn < 1 {
		turn = 1
	}

	if room != nil && room.AreaSquareMeters != nil && turn%2 == 0 {
		if c.language == "en" {
			return fmt.Sprintf(cannedRoomEN, room.Name, *room.AreaSquareMeters), nil
		}
		return fmt.Sprintf(cannedRoomES, room.Name, *room.AreaSquareMeters), nil
	}

	set := cannedES
	if c.language == "en" {
		set = cannedEN
	}
	return set[(turn-1)%len(set)], nil
}
