package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/types"
)

// DynamoDBStore implements Store using AWS DynamoDB
type DynamoDBStore struct {
	client *dynamodb.Client
	config StoreConfig
	logger zerolog.Logger
}

// NewDynamoDBStore creates a new DynamoDB store
func NewDynamoDBStore(ctx context.Context, cfg StoreConfig, logger zerolog.Logger) (*DynamoDBStore, error) {
	var client *dynamodb.Client

	if cfg.Mode == StoreModeLocal {
		// For local mode, build the client directly without LoadDefaultConfig.
		// LoadDefaultConfig probes the EC2 IMDS endpoint which hangs when
		// static credentials are intended.
		client = dynamodb.New(dynamodb.Options{
			Region:       cfg.Region,
			BaseEndpoint: aws.String(cfg.Endpoint),
			Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
		})
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = dynamodb.NewFromConfig(awsCfg)
	}

	store := &DynamoDBStore{
		client: client,
		config: cfg,
		logger: logger,
	}

	// Create tables in local mode
	if cfg.Mode == StoreModeLocal {
		if err := CreateTablesIfNotExist(ctx, client, cfg, logger); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("mode", string(cfg.Mode)).
		Str("region", cfg.Region).
		Msg("DynamoDB store initialized")

	return store, nil
}

// GetAllAgents scans the agents table. The roster is small (tens of agents),
// so a full scan per read is acceptable.
func (s *DynamoDBStore) GetAllAgents(ctx context.Context) ([]types.Agent, error) {
	result, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(s.config.AgentsTable),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan agents: %w", err)
	}

	var agents []types.Agent
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &agents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal agents: %w", err)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })
	return agents, nil
}

func (s *DynamoDBStore) GetAgent(ctx context.Context, id string) (types.Agent, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.AgentsTable),
		Key: map[string]dbtypes.AttributeValue{
			"AgentID": &dbtypes.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return types.Agent{}, fmt.Errorf("failed to get agent: %w", err)
	}
	if result.Item == nil {
		return types.Agent{}, ErrAgentNotFound
	}

	var agent types.Agent
	if err := attributevalue.UnmarshalMap(result.Item, &agent); err != nil {
		return types.Agent{}, fmt.Errorf("failed to unmarshal agent: %w", err)
	}
	return agent, nil
}

// UpdateAgent writes the whole record in a single PutItem, so a reader sees
// either the old record or the new one, never a partial update.
func (s *DynamoDBStore) UpdateAgent(ctx context.Context, agent types.Agent) error {
	item, err := attributevalue.MarshalMap(agent)
	if err != nil {
		return fmt.Errorf("failed to marshal agent: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.config.AgentsTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(AgentID)"),
	})
	if err != nil {
		return fmt.Errorf("failed to update agent %s: %w", agent.ID, err)
	}
	return nil
}

func (s *DynamoDBStore) BatchInsertAgents(ctx context.Context, agents []types.Agent) error {
	requests := make([]dbtypes.WriteRequest, 0, len(agents))
	for _, agent := range agents {
		item, err := attributevalue.MarshalMap(agent)
		if err != nil {
			return fmt.Errorf("failed to marshal agent %s: %w", agent.ID, err)
		}
		requests = append(requests, dbtypes.WriteRequest{
			PutRequest: &dbtypes.PutRequest{Item: item},
		})
	}
	return s.batchWrite(ctx, s.config.AgentsTable, requests)
}

func (s *DynamoDBStore) BatchDeleteAgents(ctx context.Context, ids []string) error {
	requests := make([]dbtypes.WriteRequest, 0, len(ids))
	for _, id := range ids {
		requests = append(requests, dbtypes.WriteRequest{
			DeleteRequest: &dbtypes.DeleteRequest{
				Key: map[string]dbtypes.AttributeValue{
					"AgentID": &dbtypes.AttributeValueMemberS{Value: id},
				},
			},
		})
	}
	return s.batchWrite(ctx, s.config.AgentsTable, requests)
}

func (s *DynamoDBStore) InsertPauseLog(ctx context.Context, log types.PauseLog) error {
	item, err := attributevalue.MarshalMap(log)
	if err != nil {
		return fmt.Errorf("failed to marshal pause log: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.PauseLogsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save pause log: %w", err)
	}
	return nil
}

// PauseLogsInRange scans for logs whose PauseStartTime falls inside the
// range. Timestamps marshal to RFC3339 strings so Between compares correctly.
// For production volume a GSI on PauseStartTime would be more efficient.
func (s *DynamoDBStore) PauseLogsInRange(ctx context.Context, start, end time.Time) ([]types.PauseLog, error) {
	filter := expression.Name("PauseStartTime").Between(expression.Value(start), expression.Value(end))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	var logs []types.PauseLog
	var lastKey map[string]dbtypes.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName:                 aws.String(s.config.PauseLogsTable),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}
		if lastKey != nil {
			input.ExclusiveStartKey = lastKey
		}

		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pause logs: %w", err)
		}

		var page []types.PauseLog
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pause logs: %w", err)
		}
		logs = append(logs, page...)

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}

	return logs, nil
}

func (s *DynamoDBStore) UpsertDailyReport(ctx context.Context, report types.DailyReport) error {
	item, err := attributevalue.MarshalMap(report)
	if err != nil {
		return fmt.Errorf("failed to marshal daily report: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.ReportsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert daily report: %w", err)
	}
	return nil
}

func (s *DynamoDBStore) ListRecentReports(ctx context.Context, n int) ([]types.DailyReport, error) {
	result, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(s.config.ReportsTable),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily reports: %w", err)
	}

	var reports []types.DailyReport
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &reports); err != nil {
		return nil, fmt.Errorf("failed to unmarshal daily reports: %w", err)
	}

	// Date keys are lexicographically ordered, newest first after sort
	sort.Slice(reports, func(i, j int) bool { return reports[i].Date > reports[j].Date })
	if n > 0 && len(reports) > n {
		reports = reports[:n]
	}
	return reports, nil
}

// batchWrite submits write requests in groups of 25 (DynamoDB batch limit)
func (s *DynamoDBStore) batchWrite(ctx context.Context, tableName string, requests []dbtypes.WriteRequest) error {
	for i := 0; i < len(requests); i += 25 {
		end := i + 25
		if end > len(requests) {
			end = len(requests)
		}

		_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]dbtypes.WriteRequest{
				tableName: requests[i:end],
			},
		})
		if err != nil {
			return fmt.Errorf("batch write to %s failed: %w", tableName, err)
		}
	}
	return nil
}

// TruncateAll deletes all items from every table (scan + batch delete)
func (s *DynamoDBStore) TruncateAll(ctx context.Context) error {
	tables := []struct {
		name string
		pk   string
		sk   string
	}{
		{s.config.AgentsTable, "AgentID", ""},
		{s.config.PauseLogsTable, "DateKey", "LogID"},
		{s.config.ReportsTable, "Date", ""},
	}

	for _, table := range tables {
		if err := s.truncateTable(ctx, table.name, table.pk, table.sk); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table.name, err)
		}
	}
	return nil
}

func (s *DynamoDBStore) truncateTable(ctx context.Context, tableName, pk, sk string) error {
	var lastKey map[string]dbtypes.AttributeValue

	projection := "#pk"
	names := map[string]string{"#pk": pk}
	if sk != "" {
		projection = "#pk, #sk"
		names["#sk"] = sk
	}

	for {
		input := &dynamodb.ScanInput{
			TableName:                aws.String(tableName),
			ProjectionExpression:     aws.String(projection),
			ExpressionAttributeNames: names,
			Limit:                    aws.Int32(500),
		}
		if lastKey != nil {
			input.ExclusiveStartKey = lastKey
		}

		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return err
		}

		// Batch delete in groups of 25
		for i := 0; i < len(result.Items); i += 25 {
			end := i + 25
			if end > len(result.Items) {
				end = len(result.Items)
			}

			requests := make([]dbtypes.WriteRequest, 0, end-i)
			for _, item := range result.Items[i:end] {
				key := map[string]dbtypes.AttributeValue{pk: item[pk]}
				if sk != "" {
					key[sk] = item[sk]
				}
				requests = append(requests, dbtypes.WriteRequest{
					DeleteRequest: &dbtypes.DeleteRequest{Key: key},
				})
			}

			_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]dbtypes.WriteRequest{
					tableName: requests,
				},
			})
			if err != nil {
				return err
			}
		}

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}

	s.logger.Info().Str("table", tableName).Msg("table truncated")
	return nil
}

// NewStore creates the appropriate store based on configuration
func NewStore(ctx context.Context, logger zerolog.Logger) (Store, error) {
	cfg := LoadStoreConfig()

	switch cfg.Mode {
	case StoreModeLocal, StoreModeAWS:
		return NewDynamoDBStore(ctx, cfg, logger)
	default:
		logger.Info().Msg("using in-memory store (STORE_MODE=memory)")
		return NewMemoryStore(), nil
	}
}
