package mail

import "fmt"

// WelcomeSubject is the subject line of the subscription welcome email.
const WelcomeSubject = "Welcome to the garden 👋"

// WelcomeEmail renders the welcome email for a new subscriber's chosen
// cadence.
func WelcomeEmail(frequency string) (html, text string) {
	cadence := NormalizeFrequency(frequency)

	html = fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 40px 20px;">

  <p style="font-size: 17px; margin-bottom: 24px;">
    Hey there! 👋
  </p>

  <p style="font-size: 17px; margin-bottom: 24px;">
    Thanks for subscribing — glad you're here.
  </p>

  <p style="font-size: 17px; margin-bottom: 24px;">
    You'll get a <strong>%s digest</strong> of new notes, TILs, and project
    updates from the garden. The good stuff, without the noise.
  </p>

  <p style="font-size: 17px; margin-bottom: 24px;">
    In the meantime, feel free to explore the site or just reply to this
    email if you want to say hi.
  </p>

  <hr style="border: none; border-top: 1px solid #e5e5e5; margin: 32px 0;">

  <p style="font-size: 14px; color: #666;">
    P.S. If this landed in spam or promotions, dragging it to your inbox
    helps make sure you don't miss future emails.
  </p>

</body>
</html>`, cadence)

	text = fmt.Sprintf(`Hey there! 👋

Thanks for subscribing — glad you're here.

You'll get a %s digest of new notes, TILs, and project updates from the garden. The good stuff, without the noise.

In the meantime, feel free to explore the site or just reply to this email if you want to say hi.

---

P.S. If this landed in spam or promotions, dragging it to your inbox helps make sure you don't miss future emails.
`, cadence)

	return html, text
}
