// Package kms unwraps the identity secret from an AWS KMS ciphertext.
package kms

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/awnumar/memguard"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// Decrypter turns a KMS ciphertext blob into plaintext. *Client satisfies it.
type Decrypter interface {
	Decrypt(ctx context.Context, ciphertext []byte, encCtx map[string]string) ([]byte, error)
}

// API is the subset of the KMS SDK the client calls.
type API interface {
	Decrypt(ctx context.Context, in *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Options selects the region, endpoint and key.
type Options struct {
	Region string
	// Endpoint targets LocalStack with dummy credentials when set.
	Endpoint string
	// KeyID, when set, makes KMS refuse ciphertexts from any other key.
	KeyID string
}

// Client decrypts secrets that were encrypted for this account.
type Client struct {
	api   API
	keyID string
}

// New creates a Client. Without an Endpoint it uses the AWS default
// credential chain.
func New(ctx context.Context, o Options) (*Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.Endpoint != "" {
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "test")),
		)
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("kms: load aws config: %w", err)
	}

	api := kms.NewFromConfig(cfg, func(ko *kms.Options) {
		if o.Endpoint != "" {
			ko.BaseEndpoint = aws.String(o.Endpoint)
		}
	})
	return NewWithAPI(api, o.KeyID), nil
}

// NewWithAPI wraps an existing KMS API implementation.
func NewWithAPI(api API, keyID string) *Client {
	return &Client{api: api, keyID: keyID}
}

// Decrypt returns the plaintext of ciphertext. encCtx must match the
// context the secret was encrypted with.
// The caller owns the returned bytes and should wipe them after use.
func (c *Client) Decrypt(ctx context.Context, ciphertext []byte, encCtx map[string]string) ([]byte, error) {
	in := &kms.DecryptInput{
		CiphertextBlob:    ciphertext,
		EncryptionContext: encCtx,
	}
	if c.keyID != "" {
		in.KeyId = aws.String(c.keyID)
	}
	out, err := c.api.Decrypt(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("kms: decrypt: %w", err)
	}
	return out.Plaintext, nil
}

// EncryptionContext is the context identity secrets are encrypted under.
func EncryptionContext(steamID uint64) map[string]string {
	return map[string]string{"steam_id": strconv.FormatUint(steamID, 10)}
}

// IdentitySecret decrypts a base64 KMS ciphertext holding the base64
// identity secret of steamID and returns the raw secret bytes. The
// intermediate plaintext is zeroed before returning.
func IdentitySecret(ctx context.Context, d Decrypter, steamID uint64, ciphertextB64 string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("kms: decode ciphertext: %w", err)
	}
	plain, err := d.Decrypt(ctx, blob, EncryptionContext(steamID))
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(plain)

	secret := make([]byte, base64.StdEncoding.DecodedLen(len(plain)))
	n, err := base64.StdEncoding.Decode(secret, plain)
	if err != nil {
		memguard.WipeBytes(secret)
		return nil, fmt.Errorf("kms: identity secret is not base64: %w", err)
	}
	return secret[:n], nil
}
