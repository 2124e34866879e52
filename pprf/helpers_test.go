package pprf

import "github.com/younisk/forward-secure-cloud-storage/internal/secret"

func zeroBuffer(n int) secret.Buffer {
	return secret.NewBuffer(n)
}

func bufferFrom(b []byte) secret.Buffer {
	return secret.FromBytes(b)
}
