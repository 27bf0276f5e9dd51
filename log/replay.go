package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Replay decodes a wire message and logs it on logger, tagged with the
// name of the module that produced it. Unknown levels are logged at info.
func Replay(ctx context.Context, logger *slog.Logger, module string, data []byte) error {
	var msg LogMessageWire
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode log message from %s: %w", module, err)
	}

	level, err := ParseLevel(msg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if !logger.Enabled(ctx, level) {
		return nil
	}

	attrs := make([]slog.Attr, 0, len(msg.Attrs)+1)
	attrs = append(attrs, slog.String("module", module))
	for _, a := range msg.Attrs {
		attrs = append(attrs, fromLogAttrWire(a))
	}
	logger.LogAttrs(ctx, level, msg.Message, attrs...)
	return nil
}
