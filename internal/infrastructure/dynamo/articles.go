package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/article-live-api/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ArticleRepo provides typed DynamoDB operations for the articles table.
//
// Comment/reply appends are targeted list_append updates so two concurrent
// appends to the same aggregate never clobber each other's sibling fields.
// Deletes and whole-list rewrites are last-write-wins.
type ArticleRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewArticleRepo(client *dynamodb.Client, tableName string) *ArticleRepo {
	return &ArticleRepo{client: client, tableName: tableName}
}

func (r *ArticleRepo) Get(ctx context.Context, articleID string) (*domain.Article, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldArticleID, articleID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("article %s: %w", articleID, domain.ErrNotFound)
	}
	var a domain.Article
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// AppendComment pushes a new comment thread onto the comments list without
// touching any sibling attribute.
func (r *ArticleRepo) AppendComment(ctx context.Context, articleID string, t domain.CommentThread) error {
	av, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldArticleID, articleID),
		ConditionExpression: aws.String("attribute_exists(article_id)"),
		UpdateExpression:    aws.String("SET comments = list_append(if_not_exists(comments, :empty), :c), updated_at = :ts"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c":     &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberM{Value: av}}},
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":ts":    &types.AttributeValueMemberS{Value: now()},
		},
	})
	return r.mapConditionErr(err, articleID)
}

// AppendReply pushes a reply onto the thread at index idx. The condition on
// the thread's comment_id guards against a concurrent reorder or delete
// shifting the index under us; a mismatch surfaces as ErrNotFound.
func (r *ArticleRepo) AppendReply(ctx context.Context, articleID string, idx int, commentID string, reply domain.Reply) error {
	av, err := attributevalue.MarshalMap(reply)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	path := fmt.Sprintf("comments[%d]", idx)
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldArticleID, articleID),
		ConditionExpression: aws.String(path + ".comment_id = :cid"),
		UpdateExpression: aws.String(fmt.Sprintf(
			"SET %s.replies = list_append(if_not_exists(%s.replies, :empty), :r), updated_at = :ts", path, path)),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":r":     &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberM{Value: av}}},
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":cid":   &types.AttributeValueMemberS{Value: commentID},
			":ts":    &types.AttributeValueMemberS{Value: now()},
		},
	})
	return r.mapConditionErr(err, articleID)
}

// SetComments rewrites the whole comments list. Used by deletes, which
// accept last-write-wins.
func (r *ArticleRepo) SetComments(ctx context.Context, articleID string, comments []domain.CommentThread) error {
	av, err := attributevalue.MarshalList(comments)
	if err != nil {
		return fmt.Errorf("marshal comments: %w", err)
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldArticleID, articleID),
		ConditionExpression: aws.String("attribute_exists(article_id)"),
		UpdateExpression:    aws.String("SET comments = :c, updated_at = :ts"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c":  &types.AttributeValueMemberL{Value: av},
			":ts": &types.AttributeValueMemberS{Value: now()},
		},
	})
	return r.mapConditionErr(err, articleID)
}

// AddLike adds userID to the like string set.
func (r *ArticleRepo) AddLike(ctx context.Context, articleID, userID string) error {
	return r.likeOp(ctx, articleID, userID, "ADD")
}

// RemoveLike removes userID from the like string set.
func (r *ArticleRepo) RemoveLike(ctx context.Context, articleID, userID string) error {
	return r.likeOp(ctx, articleID, userID, "DELETE")
}

func (r *ArticleRepo) likeOp(ctx context.Context, articleID, userID, verb string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldArticleID, articleID),
		ConditionExpression: aws.String("attribute_exists(article_id)"),
		UpdateExpression:    aws.String(verb + " likes :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberSS{Value: []string{userID}},
		},
	})
	return r.mapConditionErr(err, articleID)
}

func (r *ArticleRepo) mapConditionErr(err error, articleID string) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("article %s: %w", articleID, domain.ErrNotFound)
	}
	return err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
