package mboxsplit

import (
	"bytes"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
)

// ParseMail is an in-process stand-in for "git mailinfo": it reads the
// raw message at patchPath, and writes:
//   - to diffPath, everything after the first blank line (the patch body)
//   - to msgPath, the decoded Subject header text
//   - to infoPath, "Subject:"/"Author:"/"Email:"/"Date:" lines in the
//     shape the driver expects to scan
//
// It does not attempt MIME transfer-decoding or multipart handling:
// the goal is a faithful-enough fake for tests, not a production mail
// parser.
func ParseMail(patchPath, msgPath, diffPath, infoPath string) error {
	raw, err := os.ReadFile(patchPath)
	if err != nil {
		return err
	}
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("mboxsplit: parsing message: %w", err)
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return err
	}

	subject := strings.TrimSpace(msg.Header.Get("Subject"))
	name, email := splitFromHeader(msg.Header.Get("From"))
	date := strings.TrimSpace(msg.Header.Get("Date"))

	if err := os.WriteFile(diffPath, body, 0666); err != nil {
		return err
	}
	if err := os.WriteFile(msgPath, []byte(subject+"\n"), 0666); err != nil {
		return err
	}

	var info strings.Builder
	fmt.Fprintf(&info, "Subject: %s\n", subject)
	if name != "" {
		fmt.Fprintf(&info, "Author: %s\n", name)
	}
	if email != "" {
		fmt.Fprintf(&info, "Email: %s\n", email)
	}
	if date != "" {
		fmt.Fprintf(&info, "Date: %s\n", date)
	}
	return os.WriteFile(infoPath, []byte(info.String()), 0666)
}

// splitFromHeader extracts a display name and address from a From:
// header value, tolerating the pine-style "Mail System Internal Data"
// sender (which has no "<addr>" part at all).
func splitFromHeader(from string) (name, email string) {
	if addrs, err := mail.ParseAddressList(from); err == nil && len(addrs) > 0 {
		return addrs[0].Name, addrs[0].Address
	}
	return strings.TrimSpace(from), ""
}
