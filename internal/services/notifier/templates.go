package notifier

import "fmt"

func activationMessage(baseURL string, userID int64, token string) (subject, body string) {
	link := fmt.Sprintf("%s/verify?token=%s&uid=%d", baseURL, token, userID)
	subject = "Verify your email address"
	body = fmt.Sprintf(
		"Welcome to AuthGate!\n\n"+
			"Thanks for signing up. Please verify your email by clicking this link:\n%s\n\n"+
			"If you didn't create an account, you can ignore this email.\n",
		link)
	return subject, body
}

func resetMessage(baseURL string, userID int64, token string) (subject, body string) {
	link := fmt.Sprintf("%s/change-password?token=%s&uid=%d", baseURL, token, userID)
	subject = "Reset your password"
	body = fmt.Sprintf(
		"We received a request to reset your password.\n\n"+
			"You can choose a new one by clicking this link:\n%s\n\n"+
			"The link expires soon. If you didn't request a reset, you can ignore this email.\n",
		link)
	return subject, body
}
