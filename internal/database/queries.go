/**
 * Copyright 2025-present Star Economy Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

const (
	accountColumns = `id, star_balance, coin_balance, total_earned_coins,
		last_farm_at, last_bonus_at, daily_streak,
		miner_active, miner_last_reward_at, miner_total_earned,
		referrer_id, title, status, version, created_at, updated_at`

	// Account queries
	queryGetAccount = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = ?`

	queryInsertAccount = `
		INSERT OR IGNORE INTO accounts (
			id, star_balance, coin_balance, total_earned_coins,
			last_farm_at, last_bonus_at, daily_streak,
			miner_active, miner_last_reward_at, miner_total_earned,
			referrer_id, title, status, version, created_at, updated_at
		) VALUES (?, '0', '0', '0', 0, 0, 0, 0, 0, '0', ?, '', '', 1, ?, ?)`

	// The version guard makes every account write a compare-and-swap: zero
	// rows affected means the snapshot the mutation was computed from is gone.
	queryUpdateAccount = `
		UPDATE accounts
		SET star_balance = ?, coin_balance = ?, total_earned_coins = ?,
		    last_farm_at = ?, last_bonus_at = ?, daily_streak = ?,
		    miner_active = ?, miner_last_reward_at = ?, miner_total_earned = ?,
		    title = ?, status = ?,
		    version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryListActiveMiners = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE miner_active = 1
		ORDER BY id`

	queryTopAccounts = `
		SELECT id, total_earned_coins
		FROM accounts
		ORDER BY CAST(total_earned_coins AS REAL) DESC, id
		LIMIT ?`

	// Reserve pool queries
	queryGetReserve = `
		SELECT id, coin_reserve, star_reserve, version, updated_at
		FROM reserve_pools
		WHERE id = ?`

	querySeedReserve = `
		INSERT OR IGNORE INTO reserve_pools (id, coin_reserve, star_reserve, version, updated_at)
		VALUES (?, ?, ?, 1, ?)`

	queryUpdateReserve = `
		UPDATE reserve_pools
		SET coin_reserve = ?, star_reserve = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	// Promo queries
	queryInsertPromo = `
		INSERT INTO promo_codes (code, reward_kind, reward_value, usage_limit, used_count, expires_at, created_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`

	queryGetPromo = `
		SELECT code, reward_kind, reward_value, usage_limit, used_count, expires_at, created_at
		FROM promo_codes
		WHERE code = ?`

	queryListPromos = `
		SELECT code, reward_kind, reward_value, usage_limit, used_count, expires_at, created_at
		FROM promo_codes
		ORDER BY created_at DESC`

	queryInsertRedemption = `
		INSERT INTO promo_redemptions (code, account_id, redeemed_at)
		VALUES (?, ?, ?)`

	// The usage-limit check lives in the WHERE clause so two concurrent
	// redemptions cannot both pass a limit with one slot left.
	queryBumpPromoUsage = `
		UPDATE promo_codes
		SET used_count = used_count + 1
		WHERE code = ? AND (usage_limit = 0 OR used_count < usage_limit)`

	// Withdrawal queries
	queryInsertWithdrawal = `
		INSERT INTO withdrawal_requests (id, account_id, amount, method, address, status, rejection_reason, created_at, updated_at, processed_at)
		VALUES (?, ?, ?, ?, ?, 'pending', '', ?, ?, NULL)`

	queryGetWithdrawal = `
		SELECT id, account_id, amount, method, address, status, rejection_reason, created_at, updated_at, processed_at
		FROM withdrawal_requests
		WHERE id = ?`

	queryListWithdrawals = `
		SELECT id, account_id, amount, method, address, status, rejection_reason, created_at, updated_at, processed_at
		FROM withdrawal_requests
		WHERE account_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	// The allowed-from set lives in the WHERE clause: a transition out of any
	// other state affects zero rows and performs no mutation.
	queryTransitionWithdrawal = `
		UPDATE withdrawal_requests
		SET status = ?, rejection_reason = ?, updated_at = ?, processed_at = ?
		WHERE id = ? AND status IN (?, ?)`

	// Ledger entry queries
	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (id, account_id, currency, entry_type, amount, balance_before, balance_after, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetLedgerHistory = `
		SELECT id, account_id, currency, entry_type, amount, balance_before, balance_after, reference, created_at
		FROM ledger_entries
		WHERE account_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`
)
