package services

import (
	"fmt"
	"strings"

	"github.com/ucmarket/backend/internal/models"
)

const missingCredentialsText = "Credentials will be provided by support team"

func credentialTitle(listing *models.Listing) string {
	return fmt.Sprintf("%s Account Purchased - @%s", listing.Platform, listing.Username)
}

// credentialMessage is the body a buyer receives after a purchase.
func credentialMessage(listing *models.Listing, fields []models.CredentialField, support []string) string {
	var b strings.Builder

	b.WriteString("Purchase Successful!\n\n")
	b.WriteString("Account Details:\n")
	fmt.Fprintf(&b, "Platform: %s\n", listing.Platform)
	fmt.Fprintf(&b, "Username: @%s\n", listing.Username)
	fmt.Fprintf(&b, "Followers: %s\n\n", groupThousands(listing.Followers))

	b.WriteString("Login Credentials:\n")
	if len(fields) == 0 {
		b.WriteString(missingCredentialsText + "\n")
	}
	for _, f := range fields {
		fmt.Fprintf(&b, "%s: %s\n", f.Name, f.Value)
	}

	b.WriteString("\nImportant Notes:\n")
	b.WriteString("- Change password immediately after login\n")
	b.WriteString("- Enable 2FA for security\n")
	b.WriteString("- Contact support if you encounter any issues\n")

	if len(support) > 0 {
		fmt.Fprintf(&b, "\nSupport: %s", strings.Join(support, ", "))
	}
	return b.String()
}

func groupThousands(n int64) string {
	if n < 0 {
		return "-" + groupThousands(-n)
	}
	s := fmt.Sprintf("%d", n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
