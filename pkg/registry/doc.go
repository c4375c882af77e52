// Package registry resolves the canonical content digest a registry serves
// for an image reference's tag, using the Docker Registry HTTP API v2. The
// digest is read exclusively from the Docker-Content-Digest response header
// and never computed from the manifest body.
//
// Dispatch is a three-way branch on the reference's registry classification:
// Docker Hub (anonymous token exchange), GHCR (optional bearer token), and
// generic registries (no authentication). Adding a registry type means adding
// a case, not a class hierarchy.
package registry
