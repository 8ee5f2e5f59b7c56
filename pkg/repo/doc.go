/*
Package repo is the repository client named in spec.md §2/§4.5 step 2: it
fetches a repository's stone.index (itself a stone file, FileTypeRepository),
verifies it, and populates the metadata database's catalog; and it fetches
individual package .stone files for the transaction engine to absorb.

Cache stores configured repositories and each one's last-fetched ETag and
raw index bytes in a single bbolt file, grounded on the teacher's
single-bucket-per-concern bbolt store, so `moss sync` sends a conditional
request and, for an unchanged repository, re-ingests the cached index bytes
instead of downloading them again.
*/
package repo
