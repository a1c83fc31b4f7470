package email

import (
	"fmt"
	"html"
	"time"

	"github.com/example/agri-workflow/internal/notification"
)

// BuildNotificationBody builds the HTML body for a notification email
func BuildNotificationBody(n notification.Notification) string {
	body := ""
	if n.Body != "" {
		body = fmt.Sprintf(`<p style="margin: 20px 0; padding: 15px; background: #f8f9fa; border-radius: 5px;">%s</p>`,
			html.EscapeString(n.Body))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #3a9d5d 0%%, #1f6f43 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 22px;">%s</h1>
	</div>
	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin: 0; font-size: 14px; color: #666;">Reference</p>
		<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		%s
		<p style="font-size: 12px; color: #999;">Sent to the %s workspace at %s</p>
	</div>
</body>
</html>`,
		html.EscapeString(n.Subject),
		html.EscapeString(n.AggregateID),
		body,
		n.Role,
		n.At.Format(time.DateTime),
	)
}
