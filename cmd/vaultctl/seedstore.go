package main

// fileSeedStorage implements keystore.SeedStorage as a single
// passphrase-encrypted JSON file, the CLI-local stand-in for whatever
// secure enclave/keychain a real offline signer's SeedStorage is
// grounded on (keystore/types.go's package doc). It is deliberately not
// part of the keystore package itself, matching spec.md §1's framing of
// this core as consuming a finished SeedStorage rather than owning one.
//
// The envelope format (scrypt-derived key, AES-256-GCM, random salt and
// nonce per seed) follows the teacher's accounts/keystore encrypted-JSON
// idiom (key.go's EncryptedKeyJSONV3 shape: KDF params alongside the
// ciphertext) without reproducing its exact field names, since this
// core's on-disk shape is its own (the teacher's is keyed by a single
// account, this one by seed name).

import (
	"crypto/aes"
	"crypto/cipher"
	crand "crypto/rand"
	"encoding/json"
	"io"
	"os"

	"golang.org/x/crypto/scrypt"

	"github.com/tos-network/vault-core/errorkinds"
)

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

type seedEnvelope struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

type seedFile struct {
	Seeds map[string]seedEnvelope `json:"seeds"`
}

// fileSeedStorage is a keystore.SeedStorage backed by one on-disk file,
// all of it encrypted under one passphrase supplied at open time.
type fileSeedStorage struct {
	path       string
	passphrase string
	file       seedFile
}

func openFileSeedStorage(path, passphrase string) (*fileSeedStorage, error) {
	s := &fileSeedStorage{path: path, passphrase: passphrase, file: seedFile{Seeds: map[string]seedEnvelope{}}}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.file); err != nil {
		return nil, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "parse seed file: %v", err)
	}
	return s, nil
}

func (s *fileSeedStorage) save() error {
	raw, err := json.MarshalIndent(s.file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}

func (s *fileSeedStorage) seal(plaintext string) (seedEnvelope, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(crand.Reader, salt); err != nil {
		return seedEnvelope{}, err
	}
	key, err := scrypt.Key([]byte(s.passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return seedEnvelope{}, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return seedEnvelope{}, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return seedEnvelope{}, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(crand.Reader, nonce); err != nil {
		return seedEnvelope{}, err
	}
	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return seedEnvelope{Salt: salt, Nonce: nonce, Ciphertext: ciphertext}, nil
}

func (s *fileSeedStorage) open(env seedEnvelope) (string, error) {
	key, err := scrypt.Key([]byte(s.passphrase), env.Salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return "", errorkinds.New(errorkinds.KindInput, errorkinds.CodeBadFormat, "wrong passphrase or corrupt seed file")
	}
	return string(plaintext), nil
}

func (s *fileSeedStorage) HasSeed(name string) (bool, error) {
	_, ok := s.file.Seeds[name]
	return ok, nil
}

func (s *fileSeedStorage) SaveSeed(name, mnemonic string) error {
	env, err := s.seal(mnemonic)
	if err != nil {
		return err
	}
	s.file.Seeds[name] = env
	return s.save()
}

func (s *fileSeedStorage) LoadSeed(name string) (string, error) {
	env, ok := s.file.Seeds[name]
	if !ok {
		return "", errorkinds.New(errorkinds.KindNotFound, errorkinds.CodeKeyNotFound, "no seed named %q", name)
	}
	return s.open(env)
}

func (s *fileSeedStorage) DeleteSeed(name string) error {
	delete(s.file.Seeds, name)
	return s.save()
}

func (s *fileSeedStorage) SeedNames() ([]string, error) {
	out := make([]string, 0, len(s.file.Seeds))
	for name := range s.file.Seeds {
		out = append(out, name)
	}
	return out, nil
}
