package dynamo

// DynamoDB attribute names used in keys and update expressions across repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldArticleID = "article_id"
	fieldUserID    = "user_id"
	fieldUsername  = "username"
	fieldEnable    = "enable"
	fieldUpdatedAt = "updated_at"
)
