package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	codeCharset        = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	defaultCodeLength  = 6
	maxGenerateRetries = 10
)

var errNoUniqueCode = errors.New("could not allocate a unique access code")

// Generator produces codes that do not collide with any currently active code.
type Generator struct {
	length int
	exists func(ctx context.Context, code string) (bool, error)
	randn  func(n int) (int, error)
}

func NewGenerator(length int, exists func(ctx context.Context, code string) (bool, error)) *Generator {
	if length <= 0 {
		length = defaultCodeLength
	}
	return &Generator{
		length: length,
		exists: exists,
		randn:  cryptoIntn,
	}
}

func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxGenerateRetries; attempt++ {
		code, err := g.randomCode()
		if err != nil {
			return "", err
		}
		taken, err := g.exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", errNoUniqueCode
}

func (g *Generator) randomCode() (string, error) {
	code := make([]byte, g.length)
	for i := range code {
		n, err := g.randn(len(codeCharset))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[n]
	}
	return string(code), nil
}

func cryptoIntn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
