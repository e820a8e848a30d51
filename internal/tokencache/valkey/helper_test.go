package tokencachevalkey

import "github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"

func cacheReplaceHints(partitionKey string) cache.ReplaceHints {
	return cache.ReplaceHints{PartitionKey: partitionKey}
}

func cacheExportHints(partitionKey string) cache.ExportHints {
	return cache.ExportHints{PartitionKey: partitionKey}
}
