package content

import "pubbot/internal/post"

// FormatPosts maps raw API records into domain posts.
//
// Pure transform: missing optional fields get zero values (withPin
// defaults to false, messageId to zero). Publication-type validity is
// the publisher's concern, not checked here. Empty in, empty out.
func FormatPosts(records []Record) []post.Post {
	if len(records) == 0 {
		return nil
	}

	posts := make([]post.Post, 0, len(records))
	for _, r := range records {
		p := post.Post{
			ID: r.ID,
			Publication: post.Publication{
				Type:   post.Type(r.Publication.Type),
				Text:   r.Publication.Text,
				FileID: r.Publication.FileID,
			},
			TargetGroup: int64(r.GroupTelegramID),
			MessageID:   r.MessageID,
			WithPin:     r.WithPin,
			Status:      post.StatusAwaits,
		}
		if b := r.Publication.Button; b != nil {
			p.Publication.Button = &post.Button{Name: b.Name, URL: b.URL}
		}
		posts = append(posts, p)
	}
	return posts
}
