package normalize

import "github.com/mrz1836/connector/internal/chain"

//nolint:gochecknoglobals // Static field tables
var (
	evmLog = NewTable(
		Field{Name: "address", Kind: Address},
		Field{Name: "blockNumber", Kind: HexInt},
		Field{Name: "logIndex", Kind: HexInt},
		Field{Name: "transactionIndex", Kind: HexInt},
		Field{Name: "transactionHash"},
		Field{Name: "blockHash"},
		Field{Name: "data"},
		Field{Name: "topics"},
		Field{Name: "removed"},
	)

	evmTransaction = NewTable(
		Field{Name: "transactionHash", Aliases: []string{"hash"}},
		Field{Name: "blockHash"},
		Field{Name: "blockNumber", Kind: HexInt},
		Field{Name: "transactionIndex", Kind: HexInt},
		Field{Name: "from", Kind: Address},
		Field{Name: "to", Kind: Address},
		Field{Name: "value", Kind: Decimal},
		Field{Name: "gas", Kind: HexInt},
		Field{Name: "gasPrice", Kind: Decimal},
		Field{Name: "maxFeePerGas", Kind: Decimal},
		Field{Name: "maxPriorityFeePerGas", Kind: Decimal},
		Field{Name: "nonce", Kind: HexInt},
		Field{Name: "input"},
		Field{Name: "type", Kind: HexInt},
		Field{Name: "chainId", Kind: HexInt},
		Field{Name: "r", Kind: Strip},
		Field{Name: "s", Kind: Strip},
		Field{Name: "v", Kind: Strip},
		Field{Name: "yParity", Kind: Strip},
	)

	evmReceipt = NewTable(
		Field{Name: "transactionHash"},
		Field{Name: "blockHash"},
		Field{Name: "blockNumber", Kind: HexInt},
		Field{Name: "transactionIndex", Kind: HexInt},
		Field{Name: "from", Kind: Address},
		Field{Name: "to", Kind: Address},
		Field{Name: "status", Kind: HexBool},
		Field{Name: "gasUsed", Kind: HexInt},
		Field{Name: "cumulativeGasUsed", Kind: HexInt},
		Field{Name: "effectiveGasPrice", Kind: Decimal},
		Field{Name: "contractAddress", Kind: Address},
		Field{Name: "logs", Items: evmLog},
		Field{Name: "logsBloom"},
		Field{Name: "type", Kind: HexInt},
	)

	evmBlock = NewTable(
		Field{Name: "number", Kind: HexInt},
		Field{Name: "hash"},
		Field{Name: "parentHash"},
		Field{Name: "nonce", Kind: HexInt},
		Field{Name: "difficulty", Kind: HexInt},
		Field{Name: "totalDifficulty", Kind: HexInt},
		Field{Name: "gasLimit", Kind: HexInt},
		Field{Name: "gasUsed", Kind: HexInt},
		Field{Name: "size", Kind: HexInt},
		Field{Name: "timestamp", Kind: HexInt},
		Field{Name: "baseFeePerGas", Kind: Decimal},
		Field{Name: "miner", Kind: Address},
		Field{Name: "transactions", Items: evmTransaction},
	)

	tronTransaction = NewTable(
		Field{Name: "transactionHash", Aliases: []string{"txID"}},
		Field{Name: "blockNumber", Kind: HexInt},
		Field{Name: "signature", Kind: Strip},
	)

	tronReceipt = NewTable(
		Field{Name: "blockNumber", Kind: HexInt},
		Field{Name: "timestamp", Aliases: []string{"blockTimeStamp"}, Kind: HexInt},
		Field{Name: "fee", Kind: Decimal},
		Field{Name: "netFee", Kind: Decimal},
		Field{Name: "netUsage", Kind: HexInt},
		Field{Name: "energyFee", Kind: Decimal},
		Field{Name: "energyUsage", Kind: HexInt},
		Field{Name: "energyUsageTotal", Kind: HexInt},
		Field{Name: "originEnergyUsage", Kind: HexInt},
		Field{Name: "contractAddress", Kind: Address},
		Field{Name: "status", Aliases: []string{"result"}, Kind: HexBool},
	)

	tronBlock = NewTable(
		Field{Name: "blockNumber", Kind: HexInt},
		Field{Name: "timestamp", Kind: HexInt},
		Field{Name: "witnessAddress", Kind: Address},
		Field{Name: "transactions", Items: tronTransaction},
	)

	qtumTransaction = NewTable(
		Field{Name: "transactionHash", Aliases: []string{"txid"}},
		Field{Name: "blockNumber", Aliases: []string{"blockheight"}, Kind: HexInt},
		Field{Name: "blockHash", Aliases: []string{"blockhash"}},
		Field{Name: "confirmations", Kind: HexInt},
		Field{Name: "timestamp", Aliases: []string{"time"}, Kind: HexInt},
		Field{Name: "valueIn", Kind: Decimal},
		Field{Name: "valueOut", Kind: Decimal},
		Field{Name: "fees", Kind: Decimal},
		Field{Name: "size", Kind: HexInt},
	)

	qtumBlock = NewTable(
		Field{Name: "blockNumber", Aliases: []string{"height"}, Kind: HexInt},
		Field{Name: "hash"},
		Field{Name: "parentHash", Aliases: []string{"previousblockhash"}},
		Field{Name: "timestamp", Aliases: []string{"time"}, Kind: HexInt},
		Field{Name: "size", Kind: HexInt},
		Field{Name: "confirmations", Kind: HexInt},
		Field{Name: "reward", Kind: Decimal},
	)

	cardanoTransaction = NewTable(
		Field{Name: "transactionHash", Aliases: []string{"hash"}},
		Field{Name: "blockIndex", Kind: HexInt},
		Field{Name: "fee", Kind: Decimal},
		Field{Name: "deposit", Kind: Decimal},
		Field{Name: "totalOutput", Kind: Decimal},
		Field{Name: "size", Kind: HexInt},
	)

	cardanoReceipt = NewTable(
		Field{Name: "blockNumber", Kind: HexInt},
		Field{Name: "blockHash"},
		Field{Name: "timestamp", Aliases: []string{"includedAt"}},
		Field{Name: "fee", Kind: Decimal},
	)

	cardanoBlock = NewTable(
		Field{Name: "blockNumber", Aliases: []string{"number"}, Kind: HexInt},
		Field{Name: "hash"},
		Field{Name: "parentHash", Aliases: []string{"previousBlock"}},
		Field{Name: "timestamp", Aliases: []string{"forgedAt"}},
		Field{Name: "slotNo", Kind: HexInt},
		Field{Name: "epochNo", Kind: HexInt},
		Field{Name: "fees", Kind: Decimal},
		Field{Name: "size", Kind: HexInt},
		Field{Name: "transactionsCount", Kind: HexInt},
		Field{Name: "transactions", Items: cardanoTransaction},
	)

	tezosTransaction = NewTable(
		Field{Name: "transactionHash", Aliases: []string{"hash"}},
		Field{Name: "amount", Kind: Decimal},
		Field{Name: "fee", Kind: Decimal},
		Field{Name: "counter", Kind: HexInt},
		Field{Name: "gasLimit", Aliases: []string{"gas_limit"}, Kind: HexInt},
		Field{Name: "storageLimit", Aliases: []string{"storage_limit"}, Kind: HexInt},
	)

	tezosReceipt = NewTable(
		Field{Name: "blockNumber", Aliases: []string{"level"}, Kind: HexInt},
		Field{Name: "blockHash"},
		Field{Name: "timestamp"},
		Field{Name: "status", Kind: HexBool},
		Field{Name: "consumedMilligas", Aliases: []string{"consumed_milligas"}, Kind: HexInt},
	)

	tezosBlock = NewTable(
		Field{Name: "blockNumber", Aliases: []string{"level"}, Kind: HexInt},
		Field{Name: "hash"},
		Field{Name: "parentHash", Aliases: []string{"predecessor"}},
		Field{Name: "chainId", Aliases: []string{"chain_id"}},
		Field{Name: "protocol"},
		Field{Name: "timestamp"},
		Field{Name: "fees", Kind: Decimal},
		Field{Name: "transactions", Aliases: []string{"operations"}},
	)

	// passthrough keeps documents of families without a table unchanged.
	passthrough = NewTable()
)

// tables returns the block, transaction and receipt tables of a family.
func tables(f chain.Family) (block, tx, receipt *Table) {
	switch f {
	case chain.FamilyEVM:
		return evmBlock, evmTransaction, evmReceipt
	case chain.FamilyTron:
		return tronBlock, tronTransaction, tronReceipt
	case chain.FamilyQtum:
		// Insight receipts are projections of the transaction itself.
		return qtumBlock, qtumTransaction, qtumTransaction
	case chain.FamilyCardano:
		return cardanoBlock, cardanoTransaction, cardanoReceipt
	case chain.FamilyTezos:
		return tezosBlock, tezosTransaction, tezosReceipt
	default:
		return passthrough, passthrough, passthrough
	}
}
