package logctx

import (
	"context"
	"syslogfwd/internal/global"
)

// Append new tag to tag list (copy-on-write)
func AppendCtxTag(ctx context.Context, newTag string) (newCtx context.Context) {
	old := GetTagList(ctx)
	tags := append(append([]string(nil), old...), newTag)

	newCtx = context.WithValue(ctx, global.LogTagsKey, tags)
	return
}

// Removes last index of tag list (copy-on-write)
func RemoveLastCtxTag(ctx context.Context) (newCtx context.Context) {
	tags := append([]string(nil), GetTagList(ctx)...)
	if len(tags) > 0 {
		tags = tags[:len(tags)-1]
	}

	newCtx = context.WithValue(ctx, global.LogTagsKey, tags)
	return
}

// Overwrites entire tag list with a copy of the given list
func OverwriteCtxTag(ctx context.Context, newList []string) (newCtx context.Context) {
	tags := append([]string(nil), newList...)
	newCtx = context.WithValue(ctx, global.LogTagsKey, tags)
	return
}

// Extracts a copy of the tag list from context or returns empty list
func GetTagList(ctx context.Context) (tags []string) {
	stored, ok := ctx.Value(global.LogTagsKey).([]string)
	if !ok {
		tags = []string{}
		return
	}
	tags = append(make([]string, 0, len(stored)), stored...)
	return
}
