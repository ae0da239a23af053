package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// callNotifications invokes one org.freedesktop.Notifications method on the
// user bus and returns busctl's trimmed reply.
func callNotifications(ctx context.Context, method, signature string, args ...string) (string, error) {
	argv := append([]string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		method,
		signature,
	}, args...)

	out, err := exec.CommandContext(ctx, "busctl", argv...).CombinedOutput()
	reply := strings.TrimSpace(string(out))
	if err != nil {
		if reply == "" {
			return "", err
		}
		return "", fmt.Errorf("%w (%s)", err, reply)
	}
	return reply, nil
}

// desktopNotify sends or replaces a notification and returns the server-assigned ID.
func desktopNotify(ctx context.Context, appName string, replaceID uint32, summary string, timeoutMS int) (uint32, error) {
	reply, err := callNotifications(ctx, "Notify", "susssasa{sv}i",
		appName,
		strconv.FormatUint(uint64(replaceID), 10),
		"", // icon
		summary,
		"", // body
		"0", // actions
		"0", // hints
		strconv.Itoa(timeoutMS),
	)
	if err != nil {
		return 0, fmt.Errorf("desktop notify failed: %w", err)
	}

	typ, value, ok := strings.Cut(reply, " ")
	if !ok || typ != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", reply)
	}
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", value, err)
	}
	return uint32(id), nil
}

func desktopDismiss(ctx context.Context, id uint32) error {
	if _, err := callNotifications(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10)); err != nil {
		return fmt.Errorf("desktop dismiss failed: %w", err)
	}
	return nil
}
