package storage

// KeyMaterial returns the private key material stored for a crypto
// backend, or ErrNotFound.
func (s *Storage) KeyMaterial(backend string) ([]byte, error) {
	var material []byte
	if err := s.getArtifact(keyPrefix, []byte(backend), &material); err != nil {
		return nil, err
	}
	return material, nil
}

// SetKeyMaterial stages the private key material of a crypto backend.
func (b *Batch) SetKeyMaterial(backend string, material []byte) error {
	return b.set(keyPrefix, []byte(backend), material)
}
