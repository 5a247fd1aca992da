package sqlinline

const QInsertJob = `--sql 9091741b-94be-4a14-afc8-7aa95cf20572
insert into jobs (id, user_id, file_id, status, task, prompt, result_url, error_message, created_at, updated_at)
values ($1::uuid, $2, $3::uuid, $4, $5, $6, null, null, $7, $7);
`

const QSelectJobByID = `--sql ec69eaad-e223-4e67-9930-a63bd716734c
select id::text, user_id, file_id::text, status, task, prompt, result_url, error_message, created_at, updated_at
from jobs
where id = $1::uuid;
`

const QSelectJobForUser = `--sql 3607ba20-7c65-4423-bb09-33835f60a755
select id::text, user_id, file_id::text, status, task, prompt, result_url, error_message, created_at, updated_at
from jobs
where id = $1::uuid and user_id = $2;
`

const QListJobsByUser = `--sql a54b9fb3-9c32-4f99-b7f5-fe86470379a0
select id::text, user_id, file_id::text, status, task, prompt, result_url, error_message, created_at, updated_at,
       count(*) over () as total
from jobs
where user_id = $1
order by created_at desc
limit $2 offset $3;
`

const QCountJobsByUser = `--sql ea724523-f908-4f86-bebb-ce1205504529
select count(*) from jobs where user_id = $1;
`

const QUpdateJobState = `--sql 85f9c35e-8fbc-44a6-910d-378711d729e8
update jobs
set status = $2,
    result_url = $3,
    error_message = $4,
    updated_at = $5
where id = $1::uuid;
`

const QClaimNextJob = `--sql 31e85d6a-2729-4096-9408-46e7f5cb8ac9
with next_job as (
    select id
    from jobs
    where status = 'pending'
    order by created_at asc
    for update skip locked
    limit 1
)
update jobs
set status = 'processing', updated_at = now()
where id in (select id from next_job)
returning id::text;
`
