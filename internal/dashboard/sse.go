package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
)

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
	return err
}
