package backup

import "fmt"

// Prefix returns the object-storage prefix of one backup. Everything the
// backup owns (manifest, data document, archived files) lives under it, so
// reclaiming a backup is a single prefix delete.
func Prefix(tenantID, backupID string) string {
	return fmt.Sprintf("backups/%s/%s/", tenantID, backupID)
}

func ManifestKey(prefix string) string {
	return prefix + "manifest.json"
}

func DataKey(prefix string) string {
	return prefix + "data.json"
}

func FilesPrefix(prefix string) string {
	return prefix + "files/"
}

// TenantFilesPrefix is the live-storage prefix holding a tenant's files.
func TenantFilesPrefix(tenantID string) string {
	return fmt.Sprintf("tenants/%s/files/", tenantID)
}
