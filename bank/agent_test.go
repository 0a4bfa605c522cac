package bank

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GAIK-project/ai-agents-go/internal/llmtest"
)

func TestSupportBalanceInquiry(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT name FROM customers").
		WithArgs(123).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("John"))
	expectAccounts(mock, 123, pgxmock.NewRows([]string{"id", "balance"}).
		AddRow(1, 100.0).
		AddRow(2, 20.0))
	mock.ExpectQuery("FROM transactions").
		WithArgs([]int{1, 2}, []string{"confirmed"}).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(3.45))

	model := llmtest.NewFakeModel(
		// The agent checks the balance, then replies, then the reply is
		// condensed into the structured assessment.
		llmtest.ToolCallResponse("customer_balance", `{"input": "confirmed"}`),
		llmtest.TextResponse("John, your current balance is $123.45."),
		llmtest.TextResponse(`{"support_advice": "Your current balance is $123.45.", "block_card": false, "risk": 1}`),
	)

	agent := NewAgent(model, NewStore(mock))
	result, err := agent.Support(context.Background(), 123, "How much money do I have?")
	require.NoError(t, err)

	assert.Equal(t, "Your current balance is $123.45.", result.SupportAdvice)
	assert.False(t, result.BlockCard)
	assert.Equal(t, 1, result.Risk)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSupportLostCard(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT name FROM customers").
		WithArgs(123).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("John"))
	expectAccounts(mock, 123, pgxmock.NewRows([]string{"id", "balance"}).AddRow(1, 0.0))
	mock.ExpectExec("UPDATE cards SET status = 'blocked'").
		WithArgs([]int{1}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	model := llmtest.NewFakeModel(
		llmtest.ToolCallResponse("block_customer_cards", `{"input": ""}`),
		llmtest.TextResponse("John, I've blocked your cards. A replacement is on its way."),
		llmtest.TextResponse(`{"support_advice": "Cards blocked, replacement sent.", "block_card": true, "risk": 8}`),
	)

	agent := NewAgent(model, NewStore(mock))
	result, err := agent.Support(context.Background(), 123, "I lost my card!")
	require.NoError(t, err)

	assert.True(t, result.BlockCard)
	assert.Equal(t, 8, result.Risk)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSupportUnknownCustomer(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT name FROM customers").
		WithArgs(404).
		WillReturnError(pgx.ErrNoRows)

	agent := NewAgent(llmtest.NewFakeModel(), NewStore(mock))
	_, err := agent.Support(context.Background(), 404, "hello")
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestSupportRiskOutOfRange(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT name FROM customers").
		WithArgs(123).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("John"))

	model := llmtest.NewFakeModel(
		llmtest.TextResponse("All fine."),
		llmtest.TextResponse(`{"support_advice": "ok", "block_card": false, "risk": 42}`),
	)

	agent := NewAgent(model, NewStore(mock))
	_, err := agent.Support(context.Background(), 123, "hi")
	assert.ErrorContains(t, err, "risk 42 out of range")
}

func TestSupportResultValidate(t *testing.T) {
	assert.NoError(t, (&SupportResult{Risk: 0}).Validate())
	assert.NoError(t, (&SupportResult{Risk: 10}).Validate())
	assert.Error(t, (&SupportResult{Risk: -1}).Validate())
	assert.Error(t, (&SupportResult{Risk: 11}).Validate())
}

func TestBalanceToolReportsErrors(t *testing.T) {
	mock := newMock(t)
	expectAccounts(mock, 9, pgxmock.NewRows([]string{"id", "balance"}))

	out, err := balanceTool{store: NewStore(mock), customerID: 9}.Call(context.Background(), "confirmed")
	require.NoError(t, err)
	assert.Contains(t, out, "Error:")
}
