package keys

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"smatrader/src/security"
)

// GenKey prints a new EXCHANGE_CREDENTIALS_KEY.
func GenKey(out io.Writer) error {
	key, err := security.GenerateKey()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "EXCHANGE_CREDENTIALS_KEY=%s\n", key)
	fmt.Fprintln(out, "# Keep this key out of version control; without it the encrypted keys cannot be read.")
	return nil
}

func readLine(r *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Encrypt reads the API key, secret and mode from in and prints the
// encrypted environment lines.
func Encrypt(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	apiKey, err := readLine(reader, out, "Enter Binance API Key: ")
	if err != nil {
		return err
	}
	secret, err := readLine(reader, out, "Enter Binance Secret Key: ")
	if err != nil {
		return err
	}
	mode, err := readLine(reader, out, "Mode (test/live) [test]: ")
	if err != nil {
		return err
	}
	if apiKey == "" || secret == "" {
		return errors.New("API keys cannot be empty")
	}
	if mode == "" {
		mode = "test"
	}
	if mode != "test" && mode != "live" {
		return fmt.Errorf("unknown mode %q (expected test or live)", mode)
	}

	encKey, err := security.EncryptString(apiKey)
	if err != nil {
		return err
	}
	encSecret, err := security.EncryptString(secret)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "BINANCE_API_KEY_ENC=%s\n", encKey)
	fmt.Fprintf(out, "BINANCE_SECRET_KEY_ENC=%s\n", encSecret)
	fmt.Fprintf(out, "BINANCE_MODE=%s\n", mode)
	return nil
}

func mask(s string) string {
	if len(s) <= 14 {
		return strings.Repeat("*", len(s))
	}
	return s[:10] + "..." + s[len(s)-4:]
}

// Verify decrypts the configured *_ENC values and prints them masked.
func Verify(cfg Config, out io.Writer) error {
	if cfg.BinanceAPIKeyEnc == "" || cfg.BinanceSecretKeyEnc == "" {
		return errors.New("BINANCE_API_KEY_ENC and BINANCE_SECRET_KEY_ENC must be set")
	}
	apiKey, err := security.DecryptString(cfg.BinanceAPIKeyEnc)
	if err != nil {
		return fmt.Errorf("BINANCE_API_KEY_ENC: %w", err)
	}
	secret, err := security.DecryptString(cfg.BinanceSecretKeyEnc)
	if err != nil {
		return fmt.Errorf("BINANCE_SECRET_KEY_ENC: %w", err)
	}

	fmt.Fprintln(out, "Decrypted configuration:")
	fmt.Fprintf(out, "  API Key: %s\n", mask(apiKey))
	fmt.Fprintf(out, "  Secret:  %s\n", mask(secret))
	fmt.Fprintf(out, "  Mode:    %s\n", cfg.BinanceMode)
	return nil
}
