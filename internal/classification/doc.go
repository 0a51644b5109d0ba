// Package classification assigns each document a class by comparing its
// extracted text against built-in vocabulary profiles.
//
// Profiles are token fingerprints weighted with IDF over the profile set so
// vocabulary shared between classes stops deciding matches. The winning
// class and a relative confidence are written to the catalog; low-confidence
// results flag the document for manual review instead of failing it.
package classification
