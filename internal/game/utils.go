// internal/game/utils.go
package game

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// Encode marshals a protocol message into JSON bytes.
// Logs a warning and returns empty JSON "{}" on marshalling error.
func Encode(msg Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		logrus.WithError(err).Warnf("failed to marshal %s message", msg.MessageType())
		return []byte("{}")
	}
	return data
}
