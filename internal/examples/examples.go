package examples

// Pair is one canonical question with its known-good SQL, used as a
// few-shot grounding example in generation prompts.
type Pair struct {
	Question string
	SQL      string
}

// Library returns the curated question/SQL pairs for the transactions
// dataset. The set covers aggregates, group-bys, date filtering, NULL
// handling, CASE bucketing and ranking so that the selector always has a
// structurally similar example to offer.
func Library() []Pair {
	return []Pair{
		{
			Question: "What is the total transaction volume for SBI?",
			SQL:      "SELECT SUM(amount_inr) FROM transactions WHERE sender_bank = 'SBI'",
		},
		{
			Question: "What is the failure rate for Bill Payments?",
			SQL:      "SELECT (SUM(CASE WHEN transaction_status = 'FAILED' THEN 1 ELSE 0 END) * 100.0 / COUNT(*)) AS failure_rate FROM transactions WHERE transaction_type = 'Bill Payment'",
		},
		{
			Question: "Which age group spends the most on food?",
			SQL:      "SELECT sender_age_label, SUM(amount_inr) AS total_spent FROM transactions WHERE merchant_category = 'Food' GROUP BY sender_age_label ORDER BY total_spent DESC LIMIT 1",
		},
		{
			Question: "When are the peak hours for transactions?",
			SQL:      "SELECT day_part, COUNT(*) AS txn_count FROM transactions GROUP BY day_part ORDER BY txn_count DESC",
		},
		{
			Question: "What percentage of Large transactions are flagged as fraud?",
			SQL:      "SELECT (SUM(fraud_flag) * 100.0 / COUNT(*)) AS fraud_rate FROM transactions WHERE amount_tier = 'Large'",
		},
		{
			Question: "Compare the failure rates between 3G and 5G networks.",
			SQL:      "SELECT network_type, (SUM(CASE WHEN transaction_status = 'FAILED' THEN 1 ELSE 0 END) * 100.0 / COUNT(*)) AS failure_rate FROM transactions WHERE network_type IN ('3G', '5G') GROUP BY network_type",
		},
		{
			Question: "What is the most popular device type for P2P transfers?",
			SQL:      "SELECT device_type, COUNT(*) AS count FROM transactions WHERE transaction_type = 'P2P' GROUP BY device_type ORDER BY count DESC LIMIT 1",
		},
		{
			Question: "Is fraud more common on weekends?",
			SQL:      "SELECT is_weekend, (SUM(fraud_flag) * 100.0 / COUNT(*)) AS fraud_rate FROM transactions GROUP BY is_weekend",
		},
		{
			Question: "Which state has the highest number of failed transactions?",
			SQL:      "SELECT sender_state, COUNT(*) AS failed_count FROM transactions WHERE transaction_status = 'FAILED' GROUP BY sender_state ORDER BY failed_count DESC LIMIT 1",
		},
		{
			Question: "What is the average transaction amount for different merchant categories?",
			SQL:      "SELECT merchant_category, AVG(amount_inr) AS avg_amount FROM transactions WHERE transaction_type != 'P2P' GROUP BY merchant_category",
		},
		{
			Question: "Show me the top 5 largest fraud transactions.",
			SQL:      "SELECT transaction_id, amount_inr, sender_bank, receiver_bank FROM transactions WHERE fraud_flag = 1 ORDER BY amount_inr DESC LIMIT 5",
		},
		{
			Question: "How many transactions happened in January 2024?",
			SQL:      "SELECT COUNT(*) AS txn_count FROM transactions WHERE strftime('%m', timestamp) = '01' AND strftime('%Y', timestamp) = '2024'",
		},
		{
			Question: "Show monthly transaction volume trend.",
			SQL:      "SELECT strftime('%Y-%m', timestamp) AS month, COUNT(*) AS txn_count, SUM(amount_inr) AS total_amount FROM transactions GROUP BY month ORDER BY month",
		},
		{
			Question: "Which banks have more than 10000 transactions?",
			SQL:      "SELECT sender_bank, COUNT(*) AS txn_count FROM transactions GROUP BY sender_bank HAVING COUNT(*) > 10000 ORDER BY txn_count DESC",
		},
		{
			Question: "What percentage of total transactions does each transaction type represent?",
			SQL:      "SELECT transaction_type, COUNT(*) AS count, (COUNT(*) * 100.0 / (SELECT COUNT(*) FROM transactions)) AS percentage FROM transactions GROUP BY transaction_type ORDER BY percentage DESC",
		},
		{
			Question: "Show failed P2P transactions above 5000 rupees.",
			SQL:      "SELECT transaction_id, amount_inr, sender_bank, receiver_bank FROM transactions WHERE transaction_type = 'P2P' AND transaction_status = 'FAILED' AND amount_inr > 5000 ORDER BY amount_inr DESC",
		},
		{
			Question: "How many P2P transactions have no merchant category?",
			SQL:      "SELECT COUNT(*) AS count FROM transactions WHERE transaction_type = 'P2P' AND merchant_category IS NULL",
		},
		{
			Question: "What is the total number of transactions in the database?",
			SQL:      "SELECT COUNT(*) AS total_transactions FROM transactions",
		},
		{
			Question: "What are all the distinct merchant categories?",
			SQL:      "SELECT DISTINCT merchant_category FROM transactions WHERE merchant_category IS NOT NULL ORDER BY merchant_category",
		},
		{
			Question: "Categorize transactions as High Risk or Low Risk based on fraud flag and amount.",
			SQL:      "SELECT CASE WHEN fraud_flag = 1 AND amount_inr > 5000 THEN 'High Risk' WHEN fraud_flag = 1 THEN 'Medium Risk' ELSE 'Low Risk' END AS risk_category, COUNT(*) AS count FROM transactions GROUP BY risk_category",
		},
		{
			Question: "Compare success rates across all device types.",
			SQL:      "SELECT device_type, COUNT(*) AS total, (SUM(CASE WHEN transaction_status = 'SUCCESS' THEN 1 ELSE 0 END) * 100.0 / COUNT(*)) AS success_rate FROM transactions GROUP BY device_type ORDER BY success_rate DESC",
		},
		{
			Question: "Which hour has the highest fraud rate?",
			SQL:      "SELECT hour_of_day, (SUM(fraud_flag) * 100.0 / COUNT(*)) AS fraud_rate, COUNT(*) AS total FROM transactions GROUP BY hour_of_day ORDER BY fraud_rate DESC LIMIT 1",
		},
		{
			Question: "What are the 10 most recent transactions?",
			SQL:      "SELECT transaction_id, timestamp, transaction_type, amount_inr, sender_bank FROM transactions ORDER BY timestamp DESC LIMIT 10",
		},
		{
			Question: "How does each bank rank by total transaction amount?",
			SQL:      "SELECT sender_bank, SUM(amount_inr) AS total_amount, COUNT(*) AS txn_count FROM transactions GROUP BY sender_bank ORDER BY total_amount DESC",
		},
	}
}
