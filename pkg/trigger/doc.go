/*
Package trigger runs the trigger programs declared by a transaction's
newly installed packages, once the staging tree is built, each inside a
throwaway containerd container, per spec.md §4.5 step 5: the
engine exposes only the staging usr/ tree, mounted as the container's
rootfs, so a trigger can see the packages about to become live without
touching the currently-active /usr.

Engine is the seam between this package's ordering/dedup logic and the
containerd client: ContainerdEngine is the real implementation, while tests
exercise Runner against a fake.
*/
package trigger
